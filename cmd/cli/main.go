package main

import (
	"context"
	"log"
	"os"

	"github.com/kuzkabot/sellerbot/internal/buildinfo"
	"github.com/kuzkabot/sellerbot/internal/cli"
	"github.com/kuzkabot/sellerbot/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg, os.Stdout)

	if err := app.Run(ctx, nonFlagArgs(os.Args[1:])); err != nil {
		log.Fatalf("%v", err)
	}
}

// nonFlagArgs returns the positional arguments, skipping flags and their
// values so the config layer can own all flag parsing.
func nonFlagArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 0 && args[i][0] == '-' {
			if i+1 < len(args) && (len(args[i+1]) == 0 || args[i+1][0] != '-') {
				i++
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}
