// Command provisionusers creates identity accounts for everyone who holds a
// certificate but cannot sign in yet. Accounts get a random temporary password
// and a confirmed email, so their owners use "forgot password" to get in.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/database"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const listPageSize = 500

type identityAdmin interface {
	AdminListUsers(ctx context.Context, page, perPage int) ([]supabase.User, error)
	AdminCreateUser(ctx context.Context, params supabase.AdminUserParams) (*supabase.User, error)
}

type provisioner struct {
	store    database.Storage
	identity identityAdmin
	dryRun   bool
	out      io.Writer
	log      *zap.Logger
	password func() string
}

type report struct {
	Candidates int
	Existing   int
	Created    []string
	Failed     map[string]error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 on success, 1 when provisioning could
// not run, 2 on bad flags or when some accounts failed.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("provisionusers", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dryRun := flags.Bool("dry-run", false, "print the accounts that would be created without creating them")
	timeout := flags.Duration("timeout", 10*time.Minute, "overall deadline")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if err := config.LoadENV(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if cfg.Supabase.ServiceRoleKey == "" {
		fmt.Fprintln(stderr, "SUPABASE_SERVICE_ROLE_KEY is required")
		return 1
	}

	log := logger.NewForEnvironment(cfg.Env, cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	client := supabase.NewClient(supabase.Config{
		BaseURL: cfg.Supabase.URL,
		APIKey:  cfg.Supabase.ServiceRoleKey,
		Timeout: cfg.Supabase.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	p := &provisioner{
		store:    client,
		identity: client,
		dryRun:   *dryRun,
		out:      stdout,
		log:      log,
		password: uuid.NewString,
	}
	rep, err := p.run(ctx)
	if err != nil {
		log.Error("provisioning failed", zap.Error(err))
		return 1
	}
	if len(rep.Failed) > 0 {
		return 2
	}
	return 0
}

func (p *provisioner) run(ctx context.Context) (*report, error) {
	wanted, err := p.certificateHolders(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := p.existingAccounts(ctx)
	if err != nil {
		return nil, err
	}

	rep := &report{Candidates: len(wanted), Failed: map[string]error{}}
	emails := make([]string, 0, len(wanted))
	for email := range wanted {
		emails = append(emails, email)
	}
	sort.Strings(emails)

	for _, email := range emails {
		if existing[email] {
			rep.Existing++
			continue
		}
		if p.dryRun {
			fmt.Fprintf(p.out, "would create %s (%s)\n", email, wanted[email])
			rep.Created = append(rep.Created, email)
			continue
		}

		_, err := p.identity.AdminCreateUser(ctx, supabase.AdminUserParams{
			Email:        email,
			Password:     p.password(),
			EmailConfirm: true,
			UserMetadata: map[string]interface{}{"name": wanted[email]},
		})
		if err != nil {
			p.log.Warn("failed to create account", zap.String("email", email), zap.Error(err))
			rep.Failed[email] = err
			continue
		}
		fmt.Fprintf(p.out, "created %s\n", email)
		rep.Created = append(rep.Created, email)
	}

	p.log.Info("provisioning finished",
		zap.Bool("dry_run", p.dryRun),
		zap.Int("candidates", rep.Candidates),
		zap.Int("existing", rep.Existing),
		zap.Int("created", len(rep.Created)),
		zap.Int("failed", len(rep.Failed)),
	)
	return rep, nil
}

// certificateHolders maps each distinct certificate email to a display name
func (p *provisioner) certificateHolders(ctx context.Context) (map[string]string, error) {
	var certs []model.Certificate
	if err := p.store.Query(ctx, database.TableCertificates, &supabase.Query{
		Select: "user_email,user_name",
	}, &certs); err != nil {
		return nil, fmt.Errorf("failed to read certificates: %w", err)
	}

	holders := make(map[string]string, len(certs))
	for _, c := range certs {
		email := strings.ToLower(strings.TrimSpace(c.UserEmail))
		if email == "" {
			continue
		}
		if name := strings.TrimSpace(c.UserName); name != "" || holders[email] == "" {
			holders[email] = name
		}
	}
	return holders, nil
}

func (p *provisioner) existingAccounts(ctx context.Context) (map[string]bool, error) {
	existing := map[string]bool{}
	for page := 1; ; page++ {
		users, err := p.identity.AdminListUsers(ctx, page, listPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, u := range users {
			existing[strings.ToLower(u.Email)] = true
		}
		if len(users) < listPageSize {
			return existing, nil
		}
	}
}
