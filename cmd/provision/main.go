// Command provision creates the accounts listed in a YAML file in Firebase and
// the profile store. Running it twice is safe.
//
//	provision -file accounts.yaml -policy skip
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/creatorhub/platform-api/config"
	"github.com/creatorhub/platform-api/internal/auth/identity"
	"github.com/creatorhub/platform-api/internal/bootstrap"
	"github.com/creatorhub/platform-api/internal/logging"
	profilesrepo "github.com/creatorhub/platform-api/internal/profiles/repository"
	profilesvc "github.com/creatorhub/platform-api/internal/profiles/service"
	"github.com/creatorhub/platform-api/internal/provision"
)

func main() {
	file := flag.String("file", "accounts.yaml", "YAML file with an accounts list")
	policyFlag := flag.String("policy", string(provision.PolicySkip), "what to do with existing accounts: skip or upsert")
	flag.Parse()

	if err := run(*file, *policyFlag); err != nil {
		slog.Error("provisioning failed", "error", err)
		os.Exit(1)
	}
}

func run(file, policyFlag string) error {
	policy, err := provision.ParsePolicy(policyFlag)
	if err != nil {
		return err
	}

	specs, err := provision.LoadFile(file)
	if err != nil {
		return fmt.Errorf("load %s: %w", file, err)
	}
	if err := provision.Validate(specs); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.App.LogLevel)

	ctx := context.Background()

	db, err := bootstrap.OpenDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	authClient, err := identity.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		return err
	}

	profiles := profilesvc.NewProfileService(profilesrepo.NewProfileRepository(db.DB))
	p := provision.New(provision.NewFirebaseAccounts(authClient), profiles)

	report, err := p.Provision(ctx, specs, policy)
	slog.Info("provisioning finished", "policy", policy, "summary", report.String())
	return err
}
