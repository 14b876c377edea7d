package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"vulnera/core/types"
	"vulnera/crypto"
	"vulnera/native/bounty"
	"vulnera/services/reconciler"
)

var rpcEndpoint = defaultRPCEndpoint()

func defaultRPCEndpoint() string {
	if url := os.Getenv("VULNERA_RPC_URL"); url != "" {
		return url
	}
	return "http://localhost:8545"
}

func main() {
	args := os.Args[1:]
	if len(args) < 1 {
		printUsage()
		return
	}

	command := args[0]
	switch command {
	case "generate-key":
		if len(args) < 2 {
			fatal("Please provide a key file path.")
		}
		generateKey(args[1])
	case "vault-address":
		if len(args) < 2 {
			fatal("Please provide an owner address.")
		}
		vaultAddress(args[1])
	case "vault":
		if len(args) < 2 {
			fatal("Please provide an owner address.")
		}
		showVault(args[1])
	case "initialize":
		if len(args) < 3 {
			fatal("Usage: initialize <key-file> <escrow-lamports>")
		}
		submit(args[1], func(key *crypto.PrivateKey) types.Instruction {
			return bounty.NewInitializeInstruction(key.PubKey(), parseLamports(args[2]))
		})
	case "deposit":
		if len(args) < 3 {
			fatal("Usage: deposit <key-file> <lamports>")
		}
		submit(args[1], func(key *crypto.PrivateKey) types.Instruction {
			return bounty.NewDepositInstruction(key.PubKey(), parseLamports(args[2]))
		})
	case "pay":
		if len(args) < 8 {
			fatal("Usage: pay <key-file> <hunter> <platform> <bounty-id> <submission-id> <reward> <max-submissions> [paid-submissions]")
		}
		paySubmission(args[1:])
	case "close":
		if len(args) < 3 {
			fatal("Usage: close <key-file> <bounty-id>")
		}
		submit(args[1], func(key *crypto.PrivateKey) types.Instruction {
			return bounty.NewCloseBountyInstruction(key.PubKey(), args[2])
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: vulnera-cli <command> [args]

Commands:
  generate-key <file>                          Create a new keypair and save it
  vault-address <owner>                        Print the derived vault address
  vault <owner>                                Show the on-chain vault state
  initialize <key-file> <escrow-lamports>      Create and fund an escrow vault
  deposit <key-file> <lamports>                Add funds to an existing vault
  pay <key-file> <hunter> <platform> <bounty-id> <submission-id> <reward> <max-submissions> [paid-submissions]
  close <key-file> <bounty-id>                 Drain the vault back to the owner

The RPC endpoint defaults to http://localhost:8545; override with VULNERA_RPC_URL.`)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	os.Exit(1)
}

func generateKey(path string) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fatal(err.Error())
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key.Bytes())), 0o600); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("Wrote key file %s\nAddress: %s\n", path, key.PubKey())
}

func loadKey(path string) *crypto.PrivateKey {
	raw, err := os.ReadFile(path)
	if err != nil {
		fatal(err.Error())
	}
	decoded, err := hex.DecodeString(string(raw))
	if err != nil {
		fatal("malformed key file: " + err.Error())
	}
	key, err := crypto.PrivateKeyFromBytes(decoded)
	if err != nil {
		fatal(err.Error())
	}
	return key
}

func parseLamports(raw string) uint64 {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		fatal("invalid lamport amount: " + raw)
	}
	return v
}

func vaultAddress(ownerRaw string) {
	owner, err := crypto.ParsePublicKey(ownerRaw)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(bounty.DeriveVaultAddress(owner))
}

func showVault(ownerRaw string) {
	owner, err := crypto.ParsePublicKey(ownerRaw)
	if err != nil {
		fatal(err.Error())
	}
	node := reconciler.NewHTTPNodeClient(rpcEndpoint)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	vault, err := node.GetVault(ctx, owner)
	if err != nil {
		fatal(err.Error())
	}
	out, _ := json.MarshalIndent(vault, "", "  ")
	fmt.Println(string(out))
}

func paySubmission(args []string) {
	key := loadKey(args[0])
	hunter, err := crypto.ParsePublicKey(args[1])
	if err != nil {
		fatal("hunter: " + err.Error())
	}
	platform, err := crypto.ParsePublicKey(args[2])
	if err != nil {
		fatal("platform: " + err.Error())
	}
	maxSubs, err := strconv.ParseUint(args[6], 10, 32)
	if err != nil {
		fatal("invalid max-submissions: " + args[6])
	}
	var paid uint64
	if len(args) > 7 {
		paid, err = strconv.ParseUint(args[7], 10, 32)
		if err != nil {
			fatal("invalid paid-submissions: " + args[7])
		}
	}
	ix := bounty.NewProcessPaymentInstruction(key.PubKey(), hunter, platform, bounty.ProcessPaymentArgs{
		BountyID:               args[3],
		SubmissionID:           args[4],
		RewardPerSubmission:    parseLamports(args[5]),
		MaxSubmissions:         uint32(maxSubs),
		CurrentPaidSubmissions: uint32(paid),
	})
	sendInstruction(key, ix)
}

func submit(keyFile string, build func(*crypto.PrivateKey) types.Instruction) {
	key := loadKey(keyFile)
	sendInstruction(key, build(key))
}

func sendInstruction(key *crypto.PrivateKey, ix types.Instruction) {
	tx := &types.Transaction{Instruction: ix}
	if err := tx.Sign(key); err != nil {
		fatal(err.Error())
	}
	node := reconciler.NewHTTPNodeClient(rpcEndpoint)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	status, err := node.SubmitTransaction(ctx, tx)
	if err != nil {
		fatal(err.Error())
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
	if !status.Success {
		os.Exit(1)
	}
}
