package main

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raed-Bourouis/VoiceUP/internal/config"
	"github.com/Raed-Bourouis/VoiceUP/internal/database"
	"github.com/Raed-Bourouis/VoiceUP/internal/models"
)

// Seeds a development backend with demo profiles, chats and
// friendships so the shell has something to render on first launch.

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Database: %v", err)
	}

	log.Println("🔄 Running migrations (just in case)...")
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Migrations: %v", err)
	}

	log.Println("🗑️  Clearing Tables (EXCEPT Profiles)...")
	// Profiles survive reseeding so existing sign-ins keep working.
	if err := db.Exec("TRUNCATE TABLE chats, chat_participants, messages, message_reads, friendships, devices RESTART IDENTITY CASCADE").Error; err != nil {
		log.Fatalf("❌ Failed to truncate: %v", err)
	}

	people := seedProfiles(db)
	seedFriendships(db, people)
	seedDirectChat(db, people["ava"], people["maya"])
	seedGroupChat(db, people)
	seedDevices(db, people)

	log.Println("✅ Demo Data Seeded!")
}

func seedProfiles(db *gorm.DB) map[string]models.Profile {
	log.Println("👤 Seeding Profiles...")

	demo := []models.Profile{
		{
			ID:        "d0000000-0000-4000-8000-000000000001",
			Username:  "ava",
			Name:      "Ava Laurent",
			Bio:       "Coffee first, questions later.",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=ava",
		},
		{
			ID:        "d0000000-0000-4000-8000-000000000002",
			Username:  "maya",
			Name:      "Maya Lindqvist",
			Bio:       "Voice notes > essays",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=maya",
		},
		{
			ID:        "d0000000-0000-4000-8000-000000000003",
			Username:  "leo",
			Name:      "Leo Martins",
			Bio:       "Always outside. Reply may take a while.",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=leo",
		},
		{
			ID:        "d0000000-0000-4000-8000-000000000004",
			Username:  "zoe",
			Name:      "Zoe Aydin",
			Bio:       "",
			AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=zoe",
		},
	}

	people := make(map[string]models.Profile, len(demo))
	for _, p := range demo {
		if err := db.Where("id = ?", p.ID).FirstOrCreate(&p).Error; err != nil {
			log.Printf("   ❌ Failed: %s - %v", p.Username, err)
			continue
		}
		people[p.Username] = p
		log.Printf("   👤 Profile: %s (%s)", p.Name, p.Username)
	}
	return people
}

func seedFriendships(db *gorm.DB, people map[string]models.Profile) {
	log.Println("🤝 Seeding Friendships...")

	rows := []models.Friendship{
		// ava and maya are friends
		{UserID: people["ava"].ID, FriendID: people["maya"].ID, Status: models.FriendshipAccepted},
		// leo sent ava a request she has not answered
		{UserID: people["leo"].ID, FriendID: people["ava"].ID, Status: models.FriendshipPending},
		// ava asked zoe, still pending on zoe's side
		{UserID: people["ava"].ID, FriendID: people["zoe"].ID, Status: models.FriendshipPending},
		// zoe turned leo down
		{UserID: people["leo"].ID, FriendID: people["zoe"].ID, Status: models.FriendshipRejected},
	}

	for _, f := range rows {
		f.ID = uuid.New().String()
		if err := db.Create(&f).Error; err != nil {
			log.Printf("   ❌ Failed: %s -> %s - %v", f.UserID, f.FriendID, err)
		} else {
			log.Printf("   🤝 %s -> %s (%s)", f.UserID, f.FriendID, f.Status)
		}
	}
}

func seedDirectChat(db *gorm.DB, a, b models.Profile) {
	log.Println("💬 Seeding Direct Chat...")

	pairKey := models.DirectPairKey(a.ID, b.ID)
	chat := models.Chat{
		ID:      uuid.New().String(),
		IsGroup: false,
		PairKey: &pairKey,
	}
	if err := db.Create(&chat).Error; err != nil {
		log.Fatalf("❌ Failed to create direct chat: %v", err)
	}

	base := time.Now().Add(-90 * time.Minute)
	for _, p := range []models.Profile{a, b} {
		db.Create(&models.ChatParticipant{ChatID: chat.ID, UserID: p.ID, JoinedAt: base})
	}

	script := []scriptLine{
		{a, models.MessageText, "hey! did you land?"},
		{b, models.MessageText, "just now, the flight was endless"},
		{b, models.MessageVoice, "https://storage.example.com/chat-media/demo/voice-checkin.m4a"},
		{a, models.MessageText, "haha I can hear the airport from here"},
		{b, models.MessageImage, "https://storage.example.com/chat-media/demo/gate-selfie.jpg"},
		{a, models.MessageText, "ok that queue looks brutal. call me when you are out"},
	}

	lastAt := seedMessages(db, chat.ID, base, script)

	// a has read the whole thread, b stopped partway
	readUpTo(db, chat.ID, a.ID, lastAt)
	readUpTo(db, chat.ID, b.ID, base.Add(3*time.Minute))

	touchChat(db, chat.ID, lastAt)
	log.Printf("   💬 Direct chat %s <-> %s (%d messages)", a.Username, b.Username, len(script))
}

func seedGroupChat(db *gorm.DB, people map[string]models.Profile) {
	log.Println("💬 Seeding Group Chat...")

	chat := models.Chat{
		ID:        uuid.New().String(),
		IsGroup:   true,
		Name:      "weekend plans",
		AvatarURL: "https://api.dicebear.com/7.x/shapes/svg?seed=weekend",
	}
	if err := db.Create(&chat).Error; err != nil {
		log.Fatalf("❌ Failed to create group chat: %v", err)
	}

	base := time.Now().Add(-26 * time.Hour)
	members := []models.Profile{people["ava"], people["maya"], people["leo"]}
	for _, p := range members {
		db.Create(&models.ChatParticipant{ChatID: chat.ID, UserID: p.ID, JoinedAt: base})
	}

	script := []scriptLine{
		{people["leo"], models.MessageText, "who is in for saturday?"},
		{people["ava"], models.MessageText, "depends, what time?"},
		{people["leo"], models.MessageText, "early. like 7am early"},
		{people["maya"], models.MessageText, "absolutely not"},
		{people["leo"], models.MessageImage, "https://storage.example.com/chat-media/demo/trailhead.jpg"},
		{people["ava"], models.MessageText, "ok that view might be worth it"},
		{people["maya"], models.MessageText, "fine. one coffee stop minimum"},
	}

	lastAt := seedMessages(db, chat.ID, base, script)
	readUpTo(db, chat.ID, people["leo"].ID, lastAt)
	touchChat(db, chat.ID, lastAt)
	log.Printf("   💬 Group chat %q (%d members, %d messages)", chat.Name, len(members), len(script))
}

// scriptLine is one message in a seeded conversation.
type scriptLine struct {
	from models.Profile
	kind models.MessageType
	text string
}

func seedMessages(db *gorm.DB, chatID string, base time.Time, script []scriptLine) time.Time {
	at := base
	for _, line := range script {
		at = at.Add(2 * time.Minute)
		msg := models.Message{
			ID:        uuid.New().String(),
			ChatID:    chatID,
			SenderID:  line.from.ID,
			Type:      line.kind,
			Content:   line.text,
			CreatedAt: at,
		}
		if err := db.Create(&msg).Error; err != nil {
			log.Printf("   ❌ Failed message from %s: %v", line.from.Username, err)
		}
	}
	return at
}

// readUpTo marks everything another member sent before the cutoff as
// read, the same two-step write the client performs.
func readUpTo(db *gorm.DB, chatID, userID string, until time.Time) {
	var unread []models.Message
	db.Where("chat_id = ? AND sender_id <> ? AND created_at <= ?", chatID, userID, until).Find(&unread)
	for _, m := range unread {
		db.Create(&models.MessageRead{ID: uuid.New().String(), MessageID: m.ID, UserID: userID, ReadAt: until})
	}
	db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("last_read_at", until)
}

// touchChat pins UpdatedAt to the last message so chat lists sort the
// way a live conversation would.
func touchChat(db *gorm.DB, chatID string, at time.Time) {
	db.Model(&models.Chat{}).Where("id = ?", chatID).UpdateColumn("updated_at", at)
}

func seedDevices(db *gorm.DB, people map[string]models.Profile) {
	log.Println("📱 Seeding Devices...")

	devices := []models.Device{
		{UserID: people["ava"].ID, Token: fmt.Sprintf("demo-token-%s", uuid.New().String()[:8]), Platform: "ios"},
		{UserID: people["maya"].ID, Token: fmt.Sprintf("demo-token-%s", uuid.New().String()[:8]), Platform: "android"},
	}
	for _, d := range devices {
		d.ID = uuid.New().String()
		if err := db.Create(&d).Error; err != nil {
			log.Printf("   ❌ Failed device for %s: %v", d.UserID, err)
		}
	}
}
