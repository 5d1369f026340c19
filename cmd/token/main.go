// Command token issues operator and admin bearer tokens for the queue API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"queueline-service/internal/config"
	"queueline-service/internal/pkg/jwt"

	"github.com/joho/godotenv"
)

func main() {
	businessID := flag.String("business", "", "business id the operator manages")
	subject := flag.String("subject", "operator", "token subject")
	admin := flag.Bool("admin", false, "issue an admin token valid for every business")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gen := jwt.NewGenerator(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)

	var token string
	switch {
	case *admin:
		token, _, err = gen.GenerateAdminToken(*subject)
	case *businessID != "":
		token, _, err = gen.GenerateOperatorToken(*subject, *businessID)
	default:
		fmt.Fprintln(os.Stderr, "either -business or -admin is required")
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	fmt.Println(token)
}
