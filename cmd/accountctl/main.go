// Command accountctl manages roles and password resets of accounts from a shell.
//
//	accountctl promote <identifier> [role] [--super]
//	accountctl demote <identifier> [role] [--super]
//	accountctl reset-cancel <identifier>
//	accountctl create <username> <email> <password> [--super]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"usermanager/internal/app/deps"
	"usermanager/internal/app/services"
	c "usermanager/internal/core/domain/common"
	"usermanager/internal/core/domain/user"
	addrole "usermanager/internal/core/services/add_role"
	cancelpasswordreset "usermanager/internal/core/services/cancel_password_reset"
	createuser "usermanager/internal/core/services/create_user"
	demoteuser "usermanager/internal/core/services/demote_user"
	promoteuser "usermanager/internal/core/services/promote_user"
	removerole "usermanager/internal/core/services/remove_role"
)

const (
	exitOK = iota
	exitFailure
	exitUsage
	exitNotFound
	exitInvalidRole
)

const usage = `usage:
  accountctl promote <identifier> [role] [--super]
  accountctl demote <identifier> [role] [--super]
  accountctl reset-cancel <identifier>
  accountctl create <username> <email> <password> [--super]
`

var errUsage = errors.New("invalid usage")

type command struct {
	name  string
	args  []string
	super bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) (code int) {
	cmd, err := parseCommand(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, usage)
		return exitUsage
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Error: %v\n", r)
			code = exitFailure
		}
	}()
	d, shutdownDeps := deps.InitCommandDeps()
	defer shutdownDeps()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cmd, services.InitServices(d), stdout, stderr)
}

// parseCommand accepts flags anywhere among the positional arguments.
func parseCommand(args []string) (cmd command, err error) {
	if len(args) == 0 {
		return cmd, fmt.Errorf("%w: command is required", errUsage)
	}
	cmd.name = args[0]

	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&cmd.super, "super", false, "apply to the super administrator flag")

	rest := args[1:]
	for {
		if err := fs.Parse(rest); err != nil {
			return cmd, fmt.Errorf("%w: %v", errUsage, err)
		}
		if fs.NArg() == 0 {
			break
		}
		cmd.args = append(cmd.args, fs.Arg(0))
		rest = fs.Args()[1:]
	}

	switch cmd.name {
	case "promote", "demote":
		if len(cmd.args) == 0 || len(cmd.args) > 2 {
			return cmd, fmt.Errorf("%w: %s takes an identifier and a role", errUsage, cmd.name)
		}
		if cmd.super == (len(cmd.args) == 2) {
			return cmd, fmt.Errorf("%w: pass either a role or --super, but not both", errUsage)
		}
	case "reset-cancel":
		if len(cmd.args) != 1 || cmd.super {
			return cmd, fmt.Errorf("%w: reset-cancel takes an identifier", errUsage)
		}
	case "create":
		if len(cmd.args) != 3 {
			return cmd, fmt.Errorf("%w: create takes a username, an email and a password", errUsage)
		}
	default:
		return cmd, fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
	}
	return cmd, nil
}

func execute(ctx context.Context, cmd command, s *services.Services, stdout io.Writer, stderr io.Writer) int {
	msg, err := dispatch(ctx, cmd, s)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	fmt.Fprintln(stdout, msg)
	return exitOK
}

func dispatch(ctx context.Context, cmd command, s *services.Services) (string, error) {
	identifier := cmd.args[0]
	switch {
	case cmd.name == "promote" && cmd.super:
		result, err := s.PromoteUser.Run(ctx, promoteuser.Input{Identifier: identifier})
		if err != nil {
			return "", err
		}
		if !result.Changed {
			return fmt.Sprintf("User %q does already have the super administrator role.", identifier), nil
		}
		return fmt.Sprintf("User %q has been promoted as a super administrator.", identifier), nil

	case cmd.name == "promote":
		role := cmd.args[1]
		result, err := s.AddRole.Run(ctx, addrole.Input{Identifier: identifier, Role: role})
		if err != nil {
			return "", err
		}
		if !result.Changed {
			return fmt.Sprintf("User %q did already have %q role.", identifier, role), nil
		}
		return fmt.Sprintf("Role %q has been added to user %q.", role, identifier), nil

	case cmd.name == "demote" && cmd.super:
		result, err := s.DemoteUser.Run(ctx, demoteuser.Input{Identifier: identifier})
		if err != nil {
			return "", err
		}
		if !result.Changed {
			return fmt.Sprintf("User %q doesn't have the super administrator role.", identifier), nil
		}
		return fmt.Sprintf("User %q has been demoted as a simple user.", identifier), nil

	case cmd.name == "demote":
		role := cmd.args[1]
		result, err := s.RemoveRole.Run(ctx, removerole.Input{Identifier: identifier, Role: role})
		if err != nil {
			return "", err
		}
		if !result.Changed {
			return fmt.Sprintf("User %q didn't have %q role.", identifier, role), nil
		}
		return fmt.Sprintf("Role %q has been removed from user %q.", role, identifier), nil

	case cmd.name == "reset-cancel":
		result, err := s.CancelPasswordReset.Run(ctx, cancelpasswordreset.Input{Identifier: identifier})
		if err != nil {
			return "", err
		}
		if !result.Changed {
			return fmt.Sprintf("User %q has no pending password reset.", identifier), nil
		}
		return fmt.Sprintf("Password reset of user %q has been cancelled.", identifier), nil

	case cmd.name == "create":
		result, err := s.CreateUser.Run(ctx, createuser.Input{
			Username:     user.Username(cmd.args[0]),
			Email:        c.NewEmail(cmd.args[1]),
			Password:     user.RawPassword(cmd.args[2]),
			IsSuperAdmin: cmd.super,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created user %q with id %s.", cmd.args[0], result.User.ID), nil
	}
	return "", fmt.Errorf("%w: unknown command %q", errUsage, cmd.name)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, user.ErrUserDoesNotExist):
		return exitNotFound
	case errors.Is(err, user.ErrInvalidRole):
		return exitInvalidRole
	}
	return exitFailure
}
