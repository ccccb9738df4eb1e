// Package main is a command line client for the auth service. The session is
// persisted to disk, so an authenticated session survives across invocations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mindweek/simple-auth/pkg/authclient"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: authcli [flags] <command> [args]

Commands:
  register <email> <password> <name>   Create an account and log in
  login <email> <password>             Log in with email and password
  openid-login                         Print the provider URL to authenticate in a browser
  openid-complete <code> <state>       Finish an OpenID login with the callback values
  me                                   Show the current user
  logout                               Clear the stored session

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	serverURL := flag.String("server", "http://localhost:4000", "Auth server base URL")
	sessionFile := flag.String("session", authclient.DefaultSessionPath(), "Session file path")
	timeout := flag.Duration("timeout", 30*time.Second, "Request timeout")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	store := authclient.NewSessionStore(*sessionFile)
	client := authclient.New(*serverURL, store)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *authclient.Client, args []string) error {
	command, args := args[0], args[1:]

	switch command {
	case "register":
		if len(args) != 3 {
			return fmt.Errorf("usage: register <email> <password> <name>")
		}
		session, err := client.Register(ctx, args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Registered and logged in as %s (%s)\n", session.User.Name, session.User.Email)

	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: login <email> <password>")
		}
		session, err := client.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", session.User.Name, session.User.Email)

	case "openid-login":
		authURL, err := client.LoginWithOpenID(ctx)
		if err != nil {
			return err
		}
		fmt.Println("Open this URL in a browser to authenticate:")
		fmt.Println(authURL)
		fmt.Println()
		fmt.Println("Then run: authcli openid-complete <code> <state>")

	case "openid-complete":
		if len(args) != 2 {
			return fmt.Errorf("usage: openid-complete <code> <state>")
		}
		session, err := client.CompleteOpenIDLogin(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", session.User.Name, session.User.Email)

	case "me":
		user, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Email: %s\nName:  %s\n", user.Email, user.Name)
		if !user.CreatedAt.IsZero() {
			fmt.Printf("Since: %s\n", user.CreatedAt.Format(time.RFC3339))
		}

	case "logout":
		client.Logout()
		fmt.Println("Logged out")

	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}
