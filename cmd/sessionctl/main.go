// Command sessionctl is the operator tool for a goSession deployment.
//
//	sessionctl hash                      read a password, print its PHC hash
//	sessionctl migrate                   apply the credential schema
//	sessionctl adduser -username NAME    create a user
//	sessionctl passwd  -username NAME    replace a user's password
//	sessionctl session -token TOKEN      show a session without renewing it
//	sessionctl ping                      check Redis and Postgres
//
// Configuration comes from GOSESSION_* environment variables (see
// goSession.LoadConfigFromEnv). Passwords are read from the terminal without
// echo, or from the first line of stdin when it is not a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(a.run(ctx, os.Args[1:]))
}
