package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ardanlabs/scalefree/foundation/blockchain/database"
	"github.com/ardanlabs/scalefree/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_Send(t *testing.T) {
	t.Log("Given the need to sign and send a transaction.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen signing with a private key.", testID)
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the key: %v", failed, testID, err)
			}

			tx, err := signedTx(pk, "Bob", 5)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to sign.", success, testID)

			unsigned := database.NewTx(tx.From, tx.To, tx.Value)
			addr, err := signature.FromAddress(unsigned, tx.Signature)
			if err != nil || addr != tx.From || addr != "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4" {
				t.Fatalf("\t%s\tTest %d:\tShould recover the sender from the signature: %s %v", failed, testID, addr, err)
			}
			t.Logf("\t%s\tTest %d:\tShould recover the sender from the signature.", success, testID)

			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&got)
				w.Write([]byte(`{"status":"ok"}`))
			}))
			defer srv.Close()

			if err := post(srv.URL, tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to post: %v", failed, testID, err)
			}
			if got["signature"] != tx.Signature || got["to"] != "Bob" {
				t.Fatalf("\t%s\tTest %d:\tShould send the signed transaction: %v", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould send the signed transaction.", success, testID)
		}
	}
}
