package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"memberhub/internal/domain"
	"memberhub/internal/service"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedMembers  int
	seedRandSeed uint64
	seedPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with demo spaces, events, partners and members",
	Long: `Create demo content for local development. Requires SEED_ADMIN_EMAIL
and a reachable database. Safe to re-run: existing spaces and members are
skipped.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedMembers, "members", 25, "Number of demo members to create")
	seedCmd.Flags().Uint64Var(&seedRandSeed, "seed", 42, "Random seed for generated data")
	seedCmd.Flags().StringVar(&seedPassword, "password", "memberhub-demo", "Password for every demo member")
}

var demoSpaces = []service.SpaceRequest{
	{Name: "Introductions", Description: "Say hello and tell everyone what you are working on."},
	{Name: "Founders Circle", Description: "Operators comparing notes on hiring, fundraising and growth.", MinTier: "gold"},
	{Name: "Investor Lounge", Description: "Deal flow and portfolio discussion.", MinTier: "platinum"},
	{Name: "Diamond Roundtable", Description: "Private threads for the inner circle.", MinTier: "diamond"},
}

var demoPartners = []service.PartnerRequest{
	{Name: "Northwind Cowork", Category: "workspace", Website: "https://northwind.example.com", Perk: "Two free day passes a month"},
	{Name: "Ledgerly", Category: "finance", Website: "https://ledgerly.example.com", Perk: "20% off bookkeeping", MinTier: "gold"},
	{Name: "Atlas Legal", Category: "legal", Website: "https://atlas-legal.example.com", Perk: "Free incorporation review", MinTier: "platinum"},
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	if cfg.Seed.AdminEmail == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL is required to seed")
	}
	if len(seedPassword) < 8 {
		return fmt.Errorf("--password must be at least 8 characters")
	}

	svc := service.New(service.Deps{
		Repos:      a.repos,
		KV:         a.kv,
		SessionTTL: time.Hour,
		CacheTTL:   cfg.CacheTTL(),
		Logger:     logger,
	})
	admin, _, err := svc.Auth.EnsureAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword)
	if err != nil {
		return err
	}

	faker := gofakeit.New(seedRandSeed)
	out := cmd.OutOrStdout()

	var slugs []string
	for _, req := range demoSpaces {
		space, err := svc.Spaces.CreateSpace(ctx, admin, req)
		switch {
		case err == nil:
			fmt.Fprintf(out, "space %s\n", space.Slug)
		case errors.Is(err, domain.ErrConflict):
		default:
			return err
		}
		slugs = append(slugs, domain.Slugify(req.Name))
	}

	existing, err := svc.Partners.List(ctx, admin, "")
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, req := range demoPartners {
			if _, err := svc.Partners.Create(ctx, req); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%d partners\n", len(demoPartners))
	}

	upcoming, err := svc.Events.List(ctx, admin, "upcoming")
	if err != nil {
		return err
	}
	if len(upcoming) == 0 {
		for i, tier := range domain.Tiers() {
			start := time.Now().Add(time.Duration(7*(i+1)) * 24 * time.Hour).Truncate(time.Hour)
			_, err := svc.Events.CreateEvent(ctx, admin, service.EventRequest{
				Title:       faker.RandomString([]string{"Harbor", "Founders", "Rooftop", "Library"}) + " " + faker.RandomString([]string{"Dinner", "Salon", "Workshop", "Mixer"}),
				Description: faker.Sentence(18),
				Location:    faker.City(),
				StartsAt:    start,
				EndsAt:      start.Add(2 * time.Hour),
				MinTier:     string(tier),
				Capacity:    faker.Number(10, 60),
			})
			if err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%d events\n", len(domain.Tiers()))
	}

	created := 0
	for i := 0; i < seedMembers; i++ {
		name := faker.Name()
		email := fmt.Sprintf("%s.%d@members.example.com", strings.ToLower(faker.Username()), i)
		auth, err := svc.Auth.SignUp(ctx, service.SignUpRequest{Email: email, Password: seedPassword, FullName: name})
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return err
		}
		id := auth.Profile.ID

		tiers := domain.Tiers()
		tier := tiers[faker.Number(0, len(tiers)-1)]
		if _, err := svc.Admin.UpdateMember(ctx, admin, id, service.UpdateMemberRequest{Tier: string(tier)}); err != nil {
			return err
		}
		headline, company, location := faker.JobTitle(), faker.Company(), faker.City()
		if _, err := svc.Members.UpdateProfile(ctx, id, service.UpdateProfileRequest{
			Headline:  &headline,
			Company:   &company,
			Location:  &location,
			Interests: []string{faker.Hobby(), faker.Hobby()},
		}); err != nil {
			return err
		}

		member, err := svc.Auth.Authenticate(ctx, auth.Token)
		if err != nil {
			return err
		}
		joinSpaces(ctx, svc, member, slugs, faker, logger)
		created++
	}
	fmt.Fprintf(out, "%d members\n", created)
	return nil
}

// joinSpaces joins every space the member's tier allows and posts in some.
func joinSpaces(ctx context.Context, svc *service.Services, member *domain.Profile, slugs []string, faker *gofakeit.Faker, logger *zap.Logger) {
	for _, slug := range slugs {
		if _, err := svc.Spaces.Join(ctx, member, slug); err != nil {
			if !errors.Is(err, domain.ErrTierRequired) {
				logger.Warn("seed join failed", zap.String("slug", slug), zap.Error(err))
			}
			continue
		}
		if !faker.Bool() {
			continue
		}
		_, err := svc.Spaces.CreatePost(ctx, member, slug, service.CreatePostRequest{
			Title: faker.Sentence(5),
			Body:  faker.Paragraph(1, 3, 12, " "),
		})
		if err != nil {
			logger.Warn("seed post failed", zap.String("slug", slug), zap.Error(err))
		}
	}
}
