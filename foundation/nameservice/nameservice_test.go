package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/scalefree/foundation/blockchain/signature"
	"github.com/ardanlabs/scalefree/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_NameService(t *testing.T) {
	t.Log("Given the need to name accounts from key files.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the folder holds a key file.", testID)
		{
			root := t.TempDir()

			pk, err := crypto.GenerateKey()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to generate a key: %v", failed, testID, err)
			}
			if err := crypto.SaveECDSA(filepath.Join(root, "miner1.ecdsa"), pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to save the key: %v", failed, testID, err)
			}

			ns, err := nameservice.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the folder: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the folder.", success, testID)

			account := signature.PublicKeyToAccount(pk.PublicKey)
			if ns.Lookup(account) != "miner1" {
				t.Fatalf("\t%s\tTest %d:\tShould find the name: %s", failed, testID, ns.Lookup(account))
			}
			if got, ok := ns.Account("miner1"); !ok || got != account {
				t.Fatalf("\t%s\tTest %d:\tShould find the account: %s", failed, testID, got)
			}
			if ns.Lookup("Bob") != "Bob" || len(ns.Copy()) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould return unknown accounts as is.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould map names and accounts both ways.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the folder does not exist.", testID)
		{
			ns, err := nameservice.New(filepath.Join(t.TempDir(), "missing"))
			if err != nil || len(ns.Copy()) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould return an empty name service: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould return an empty name service.", success, testID)
		}
	}
}
