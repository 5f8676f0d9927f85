// Package main is an interactive client for exercising the authority
// engine against a running identity service: it mirrors the session,
// lists accessible users, switches the active principal and answers
// capability queries.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparkyfit/authority/internal/authority"
	"github.com/sparkyfit/authority/internal/config"
	"github.com/sparkyfit/authority/internal/identity"
	"github.com/sparkyfit/authority/internal/models"
)

const pollInterval = 10 * time.Second

func main() {
	options := config.Parse()
	if options.Token == "" {
		log.Fatal("session token required (-t or SESSION_TOKEN)")
	}

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	api := identity.NewClient(options.ServerURL, options.Token, nil)
	provider := identity.NewProviderClient(options.ServerURL, options.Token, nil)

	engine := authority.NewEngine(provider, api, authority.Config{
		StickyWindow: options.StickyWindow,
		Reload:       func() { fmt.Println("signed out, exiting"); os.Exit(0) },
	}, zapLogger)

	engine.Subscribe(func(s authority.Snapshot) {
		fmt.Printf("[%s] active=%s acting-on-behalf=%v grants=%d\n",
			s.Status, s.Session.ActivePrincipalID, s.ActingOnBehalf, len(s.Grants))
	})

	ctx := context.Background()
	engine.Refresh(ctx)
	identity.StartSessionPoll(ctx, provider, engine, pollInterval, zapLogger)

	repl(ctx, engine)
}

func repl(ctx context.Context, engine *authority.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("commands: whoami | list | switch <id> | can <read|write> <capability> | refresh | signout | exit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "whoami":
			authn, ok := engine.CurrentAuthenticatedPrincipal()
			if !ok {
				fmt.Println("signed out")
				continue
			}
			active, _ := engine.CurrentActivePrincipal()
			fmt.Printf("authenticated as %s (%s), acting as %s (%s)\n",
				authn.ID, authn.DisplayName, active.ID, active.DisplayName)

		case "list":
			for id, g := range engine.Snapshot().Grants {
				fmt.Printf("%s (%s): diary=%v checkin=%v reports=%v foodList=%v\n",
					id, g.GrantorDisplayName,
					g.Permissions.Diary, g.Permissions.Checkin,
					g.Permissions.Reports, g.Permissions.FoodList)
			}

		case "switch":
			if len(fields) != 2 {
				fmt.Println("usage: switch <id>")
				continue
			}
			if err := engine.SwitchActivePrincipal(ctx, fields[1]); err != nil {
				fmt.Println("switch failed:", err)
			}

		case "can":
			if len(fields) != 3 {
				fmt.Println("usage: can <read|write> <capability>")
				continue
			}
			c := models.Capability(fields[2])
			switch fields[1] {
			case "read":
				fmt.Println(engine.CanRead(c))
			case "write":
				fmt.Println(engine.CanWrite(c))
			default:
				fmt.Println("usage: can <read|write> <capability>")
			}

		case "refresh":
			engine.Refresh(ctx)

		case "signout":
			engine.SignOut(ctx)

		case "exit":
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}
