// Package main provides a CLI tool for generating test tokens for the vouch API.
// These tokens use the dev signing key and will NOT work in production.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"vouch/internal/platform/token"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	actorID := flag.String("actor-id", "dev-user", "Actor ID placed in the token")
	roles := flag.String("roles", "", "Comma-separated roles (e.g. reviewer,member)")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	signingKey := flag.String("signing-key", devSigningKey, "HS256 signing key")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	roleList := parseRoles(*roles)

	svc := token.NewService(*signingKey, *ttl)
	signed, err := svc.Generate(*actorID, roleList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     signed,
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"actor_id": *actorID,
				"roles":    roleList,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Bearer Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Actor ID:   %s\n", *actorID)
	fmt.Printf("Roles:      %v\n", roleList)
	fmt.Printf("Expires In: %s\n", *ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/v1/verifications/me")
}

func printUsage() {
	fmt.Println(`tokengen - Generate test tokens for the vouch API

WARNING: These tokens use the dev signing key and will NOT work in production.
         Only use for local development and testing.

Examples:
  # Token for a requester
  tokengen -actor-id user-42

  # Token for a reviewer
  tokengen -actor-id mod-1 -roles reviewer

  # Output as JSON
  tokengen -actor-id user-42 -json`)
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func parseRoles(roles string) []string {
	if roles == "" {
		return nil
	}
	parts := strings.Split(roles, ",")
	result := make([]string, 0, len(parts))
	for _, r := range parts {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
