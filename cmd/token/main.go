// Command token mints an access token for operators and local testing.
// Accounts live outside this service; the token only has to carry the
// user id and role the API trusts.
//
//	go run ./cmd/token -user 42 -role ADMIN -ttl 60
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/auditorium-seat-reservation/internal/middleware"
	"github.com/iliyamo/auditorium-seat-reservation/internal/utils"
)

func main() {
	userID := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleUser, "role claim: USER or ADMIN")
	ttl := flag.Int("ttl", 60, "lifetime in minutes")
	flag.Parse()
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	if *userID == 0 {
		log.Fatal("-user is required")
	}
	if *role != middleware.RoleUser && *role != middleware.RoleAdmin {
		log.Fatalf("unknown role %q", *role)
	}

	tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format("2006-01-02T15:04:05Z07:00"))
}
