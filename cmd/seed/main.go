package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"contractor-backend/internal/auth"
	"contractor-backend/internal/config"
	"contractor-backend/internal/db"
	"contractor-backend/internal/intake"
	"contractor-backend/internal/lead"
	"contractor-backend/internal/models"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type seedUser struct {
	Username    string
	Email       string
	PasswordEnv string
}

var demoLeads bool

var rootCmd = &cobra.Command{
	Use:          "seed",
	Short:        "Create admin users and, optionally, sample leads",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&demoLeads, "demo-leads", false, "insert sample leads for the admin views")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		return err
	}

	adminUsers := []seedUser{
		{
			Username:    envOrDefault("ADMIN_USER", "admin"),
			Email:       envOrDefault("ADMIN_EMAIL", ""),
			PasswordEnv: "ADMIN_PASSWORD",
		},
		{
			Username:    envOrDefault("ADMIN_USER_2", "estimator"),
			Email:       envOrDefault("ADMIN_EMAIL_2", ""),
			PasswordEnv: "ADMIN_PASSWORD_2",
		},
	}

	for _, admin := range adminUsers {
		password := os.Getenv(admin.PasswordEnv)
		if password == "" {
			log.Printf("seed admin: %s missing, skipping (%s)", admin.Username, admin.PasswordEnv)
			continue
		}
		if err := seedAdminUser(ctx, cols, admin.Username, admin.Email, password, cfg.Timezone); err != nil {
			return fmt.Errorf("seed admin %s: %w", admin.Username, err)
		}
	}

	if demoLeads {
		if err := seedDemoLeads(ctx, cols, cfg.Timezone); err != nil {
			return fmt.Errorf("seed demo leads: %w", err)
		}
	}

	log.Println("seed completed")
	return nil
}

func seedAdminUser(ctx context.Context, cols *db.Collections, username, email, password string, loc *time.Location) error {
	if cols == nil || cols.Users == nil {
		return nil
	}
	if username == "" || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().In(loc)
	filter := bson.M{"username": username}
	set := bson.M{
		"passwordHash": hash,
		"role":         models.UserRoleAdmin,
		"updatedAt":    now,
	}
	if email != "" {
		set["email"] = email
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"username":  username,
			"createdAt": now,
		},
	}
	_, err = cols.Users.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// seedDemoLeads pushes sample submissions through the intake service so
// stored records have exactly the shape real deliveries produce.
func seedDemoLeads(ctx context.Context, cols *db.Collections, loc *time.Location) error {
	svc := intake.NewService(intake.NewRepository(cols.Leads), nil, nil, loc, 0, slog.Default())
	now := time.Now()
	drafts := []lead.Draft{
		{Name: "Maria Lopez", Email: "maria@example.com", Phone: "(619) 555-0101", Budget: 120000, Timeline: lead.Timeline1To3Months, ProjectType: "Home Renovations", Message: "Kitchen and two baths."},
		{Name: "Tom Becker", Email: "tom@example.com", Phone: "(858) 555-0199", Budget: 40000, Timeline: lead.TimelineASAP, ProjectType: "microcement", EstimatedBudget: 49500},
		{Name: "Ana Silva", Email: "ana@example.com", Phone: "(760) 555-0142", Budget: 450000, Timeline: lead.TimelinePlanningOnly},
	}
	for i, d := range drafts {
		sub := lead.BuildSubmission(d, now.Add(-time.Duration(i)*time.Hour))
		if err := svc.Deliver(ctx, sub); err != nil {
			return err
		}
	}
	log.Printf("seed demo leads: %d inserted", len(drafts))
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
