package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an admin token and its bcrypt hash",
	Long: `Generate a random admin token and the bcrypt hash to configure it.

Set the printed hash as ADMIN_TOKEN_HASH on the server and pass the token
as a bearer token when calling the refresh endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		token := base64.RawURLEncoding.EncodeToString(raw)

		hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Token:            %s\n", token)
		fmt.Fprintf(out, "ADMIN_TOKEN_HASH: %s\n", string(hash))
		fmt.Fprintln(out, "\nTest with:")
		fmt.Fprintf(out, "curl -X POST -H 'Authorization: Bearer %s' http://localhost:8080/api/v1/reliability/refresh -d '{\"domain_list\":[\"oncology\"]}'\n", token)
		return nil
	},
}
