package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	url   string
	to    string
	value int64
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and send a transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		if err := sendWithDetails(privateKey); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Int64VarP(&value, "value", "v", 0, "Value to send.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) error {
	tx, err := signedTx(privateKey, to, value)
	if err != nil {
		return err
	}

	return post(fmt.Sprintf("%s/v1/tx/submit", url), tx)
}

// signedTx constructs a transaction from the account of the private key and
// signs it. The node stores the signature without checking it.
func signedTx(privateKey *ecdsa.PrivateKey, to string, value int64) (database.Tx, error) {
	tx := database.NewTx(signature.PublicKeyToAccount(privateKey.PublicKey), to, value)

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return database.Tx{}, fmt.Errorf("signing tx: %w", err)
	}

	if err := tx.SignOnce(sig); err != nil {
		return database.Tx{}, err
	}

	return tx, nil
}

// post sends the transaction to the node and prints the response.
func post(url string, tx database.Tx) error {
	payload := struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Value     int64  `json:"value"`
		Signature string `json:"signature"`
	}{
		From:      tx.From,
		To:        tx.To,
		Value:     tx.Value,
		Signature: tx.Signature,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node responded %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))

	return nil
}
