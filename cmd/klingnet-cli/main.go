// klingnet-cli is a command-line client for interacting with a klingnetd node.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/rpc"
	"github.com/klingnet-core/klingnet-core/internal/rpcclient"
	"github.com/klingnet-core/klingnet-core/internal/wallet"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
	"golang.org/x/term"
)

// keystoreDir returns the keystore path matching klingnetd's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := "http://127.0.0.1:8545"
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	// Scan for --rpc, --datadir, --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir := keystoreDir(dataDir, network)
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "block":
		cmdBlock(client, cmdArgs)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "txs":
		cmdTxs(client, cmdArgs)
	case "send":
		cmdSend(client, cmdArgs, ksDir)
	case "mempool":
		cmdMempool(client)
	case "peers":
		cmdPeers(client)
	case "peer":
		cmdPeer(client, cmdArgs)
	case "sync":
		cmdSync(client)
	case "mine":
		cmdMine(client, cmdArgs)
	case "wallet":
		cmdWallet(client, cmdArgs, ksDir)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingnet-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8545)
  --datadir <path>    Data directory (default: ~/.klingnet)
  --network <net>     mainnet (default) or testnet

Commands:
  status                          Show chain status and peer count
  block <hash|index>              Show block details
  balance <address>                Show address balance
  txs <address>                   List confirmed transactions for an address
  send --wallet <w> --to <addr> --amount <n> [--fee <n>]
                                  Send a transaction
  mempool                         Show mempool stats and pending tx ids
  peers                           Show known peer addresses
  peer connect <addr>             Dial and handshake with a peer
  sync                            Re-sync chain state from known peers
  mine --address <addr> [--max-txs <n>]
                                  Mine a block immediately

  wallet create --name <n>        Create a new local wallet and register it
  wallet import --name <n> --mnemonic "..."
                                  Import a wallet from an existing mnemonic
  wallet list                     List local wallet names
  wallet address --wallet <w>     Show a wallet's address
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	var info rpc.ChainInfoResult
	if err := client.Call("chain_getInfo", nil, &info); err != nil {
		fatal("chain_getInfo: %v", err)
	}
	fmt.Printf("Height:     %d\n", info.Height)
	fmt.Printf("Tip:        %s\n", info.TipHash)
	fmt.Printf("Difficulty: %d\n", info.Difficulty)
	fmt.Printf("Blocks:     %d\n", info.Length)

	var peers rpc.PeersResult
	if err := client.Call("net_getPeers", nil, &peers); err != nil {
		fatal("net_getPeers: %v", err)
	}
	fmt.Printf("Peers:      %d\n", len(peers.Peers))
}

// ── block ───────────────────────────────────────────────────────────────

func cmdBlock(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingnet-cli block <hash|index>")
	}

	var blk rpc.BlockResult
	if index, err := strconv.ParseUint(args[0], 10, 64); err == nil {
		if err := client.Call("chain_getBlockByIndex", rpc.IndexParam{Index: index}, &blk); err != nil {
			fatal("chain_getBlockByIndex: %v", err)
		}
	} else {
		if err := client.Call("chain_getBlockByHash", rpc.HashParam{Hash: args[0]}, &blk); err != nil {
			fatal("chain_getBlockByHash: %v", err)
		}
	}

	fmt.Printf("Index:        %d\n", blk.Header.Index)
	fmt.Printf("Hash:         %s\n", blk.Hash)
	fmt.Printf("Prev:         %s\n", blk.Header.PrevHash)
	fmt.Printf("Merkle Root:  %s\n", blk.Header.MerkleRoot)
	fmt.Printf("Difficulty:   %d\n", blk.Header.Difficulty)
	fmt.Printf("Nonce:        %d\n", blk.Header.Nonce)
	ts := time.Unix(blk.Header.Timestamp, 0).UTC()
	fmt.Printf("Timestamp:    %s\n", ts.Format("2006-01-02 15:04:05 UTC"))
	fmt.Printf("Transactions: %d\n", len(blk.Transactions))
	for i, t := range blk.Transactions {
		fmt.Printf("  [%d] %s: %s -> %s (%d, fee %d)\n", i, t.ID, t.From, t.To, t.Amount, t.Fee)
	}
}

// ── balance / txs ───────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingnet-cli balance <address>")
	}
	var result rpc.BalanceResult
	if err := client.Call("account_getBalance", rpc.AddressParam{Address: args[0]}, &result); err != nil {
		fatal("account_getBalance: %v", err)
	}
	fmt.Printf("Address: %s\n", result.Address)
	fmt.Printf("Balance: %d\n", result.Balance)
}

func cmdTxs(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingnet-cli txs <address>")
	}
	var txs []*tx.Transaction
	if err := client.Call("account_getTransactions", rpc.AddressParam{Address: args[0]}, &txs); err != nil {
		fatal("account_getTransactions: %v", err)
	}
	if len(txs) == 0 {
		fmt.Println("No transactions found.")
		return
	}
	for _, t := range txs {
		fmt.Printf("%s: %s -> %s (%d, fee %d)\n", t.ID, t.From, t.To, t.Amount, t.Fee)
	}
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	toAddr := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Amount to send")
	fee := fs.Uint64("fee", 0, "Transaction fee")
	fs.Parse(args)

	if *walletName == "" || *toAddr == "" || *amount == 0 {
		fatal("Usage: klingnet-cli send --wallet <name> --to <addr> --amount <n> [--fee <n>]")
	}
	recipient := types.Address(*toAddr)
	if err := recipient.Validate(); err != nil {
		fatal("invalid recipient address: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	seed, err := ks.Load(*walletName, password)
	if err != nil {
		fatal("invalid password or wallet: %v", err)
	}
	account, err := wallet.DeriveAccount(seed)
	if err != nil {
		fatal("derive account: %v", err)
	}

	txn := &tx.Transaction{
		ID:        fmt.Sprintf("%s-%d", account.Keypair.Address, time.Now().UnixNano()),
		From:      account.Keypair.Address,
		To:        recipient,
		Amount:    *amount,
		Fee:       *fee,
		Timestamp: time.Now().Unix(),
	}
	if err := txn.Sign(account.Keypair.Private); err != nil {
		fatal("sign transaction: %v", err)
	}

	var result map[string]string
	if err := client.Call("tx_submit", rpc.TxSubmitParam{Transaction: txn}, &result); err != nil {
		fatal("tx_submit: %v", err)
	}
	fmt.Printf("Submitted: %s\n", result["id"])
}

// ── mempool ─────────────────────────────────────────────────────────────

func cmdMempool(client *rpcclient.Client) {
	var info rpc.MempoolInfoResult
	if err := client.Call("mempool_getInfo", nil, &info); err != nil {
		fatal("mempool_getInfo: %v", err)
	}
	fmt.Printf("Pending: %d\n", info.Size)

	if info.Size == 0 {
		return
	}
	var txs []*tx.Transaction
	if err := client.Call("mempool_getContent", nil, &txs); err != nil {
		fatal("mempool_getContent: %v", err)
	}
	for _, t := range txs {
		fmt.Printf("  %s: %s -> %s (%d, fee %d)\n", t.ID, t.From, t.To, t.Amount, t.Fee)
	}
}

// ── peers ───────────────────────────────────────────────────────────────

func cmdPeers(client *rpcclient.Client) {
	var result rpc.PeersResult
	if err := client.Call("net_getPeers", nil, &result); err != nil {
		fatal("net_getPeers: %v", err)
	}
	if len(result.Peers) == 0 {
		fmt.Println("No known peers.")
		return
	}
	for _, p := range result.Peers {
		fmt.Println(p)
	}
}

func cmdPeer(client *rpcclient.Client, args []string) {
	if len(args) < 2 || args[0] != "connect" {
		fatal("Usage: klingnet-cli peer connect <addr>")
	}
	var result map[string]bool
	if err := client.Call("net_connect", rpc.ConnectPeerParam{Addr: args[1]}, &result); err != nil {
		fatal("net_connect: %v", err)
	}
	fmt.Println("Connected.")
}

func cmdSync(client *rpcclient.Client) {
	var result map[string]bool
	if err := client.Call("net_syncAll", nil, &result); err != nil {
		fatal("net_syncAll: %v", err)
	}
	fmt.Println("Synced.")
}

// ── mine ────────────────────────────────────────────────────────────────

func cmdMine(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	address := fs.String("address", "", "Coinbase address")
	maxTxs := fs.Int("max-txs", 0, "Maximum transactions to include")
	fs.Parse(args)

	if *address == "" {
		fatal("Usage: klingnet-cli mine --address <coinbase> [--max-txs <n>]")
	}

	var blk rpc.BlockResult
	if err := client.Call("mining_mineBlock", rpc.MineBlockParam{MinerAddress: *address, MaxTxs: *maxTxs}, &blk); err != nil {
		fatal("mining_mineBlock: %v", err)
	}
	fmt.Printf("Mined block %d: %s (%d transactions)\n", blk.Header.Index, blk.Hash, len(blk.Transactions))
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(client *rpcclient.Client, args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: klingnet-cli wallet <create|import|list|address> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(client, args[1:], ksDir)
	case "import":
		cmdWalletImport(client, args[1:], ksDir)
	case "list":
		cmdWalletList(ksDir)
	case "address":
		cmdWalletAddress(args[1:], ksDir)
	default:
		fatal("Unknown wallet command: %s\nUsage: klingnet-cli wallet <create|import|list|address> [flags]", args[0])
	}
}

func cmdWalletCreate(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)
	if *name == "" {
		fatal("Usage: klingnet-cli wallet create --name <name>")
	}

	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}
	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	addr := saveWalletLocally(*name, mnemonic, ksDir)
	registerWalletRemotely(client, mnemonic)

	fmt.Printf("Wallet created: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

func cmdWalletImport(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	fs.Parse(args)
	if *name == "" || *mnemonic == "" {
		fatal(`Usage: klingnet-cli wallet import --name <name> --mnemonic "word1 word2 ..."`)
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	addr := saveWalletLocally(*name, *mnemonic, ksDir)
	registerWalletRemotely(client, *mnemonic)

	fmt.Printf("Wallet imported: %s\n", *name)
	fmt.Printf("Address: %s\n", addr)
}

// saveWalletLocally derives the account from mnemonic and persists it,
// password-encrypted, in the CLI's own keystore directory.
func saveWalletLocally(name, mnemonic, ksDir string) types.Address {
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	account, err := wallet.DeriveAccount(seed)
	if err != nil {
		fatal("derive account: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(name, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}
	for i := range seed {
		seed[i] = 0
	}

	return account.Keypair.Address
}

// registerWalletRemotely registers the mnemonic's address with the node's
// in-memory wallet view so it can send and receive once the node knows its
// public key. A node restart loses this unless the address was also
// restored from its own keystore (see internal/node.New's restoreWallets).
func registerWalletRemotely(client *rpcclient.Client, mnemonic string) {
	var result rpc.WalletResult
	if err := client.Call("wallet_restore", rpc.RestoreWalletParam{Mnemonic: mnemonic}, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to register wallet with node (is it running?): %v\n", err)
	}
}

func cmdWalletList(ksDir string) {
	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdWalletAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("wallet address", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)
	if *walletName == "" {
		fatal("Usage: klingnet-cli wallet address --wallet <name>")
	}

	ks, err := wallet.NewKeystore(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	addr, err := ks.Address(*walletName)
	if err != nil {
		fatal("lookup address: %v", err)
	}
	fmt.Println(addr)
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
