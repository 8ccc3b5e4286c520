package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/node"
	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
)

func testNode(t *testing.T) *node.Node {
	t.Helper()
	n, err := node.New(&config.Config{
		Network: config.Testnet,
		DataDir: t.TempDir(),
		P2P:     config.P2PConfig{Enabled: false},
		Mining:  config.MiningConfig{Enabled: false},
	})
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	return n
}

func startTestServer(t *testing.T, n *node.Node) *Server {
	t.Helper()
	s := New("127.0.0.1:0", n)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func call(t *testing.T, s *Server, method string, params interface{}) *Response {
	t.Helper()
	req := Request{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	resp, err := http.Post("http://"+s.Addr()+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return &out
}

func decodeResult(t *testing.T, resp *Response, target interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected RPC error: %+v", resp.Error)
	}
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("unmarshal result into target: %v", err)
	}
}

func TestServer_ChainGetInfo(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "chain_getInfo", nil)
	var info ChainInfoResult
	decodeResult(t, resp, &info)
	if info.Height != 0 || info.Length != 1 {
		t.Errorf("expected a fresh genesis-only chain, got %+v", info)
	}
}

func TestServer_ChainGetBlockByIndex(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "chain_getBlockByIndex", IndexParam{Index: 0})
	var blk BlockResult
	decodeResult(t, resp, &blk)
	if blk.Header.Index != 0 {
		t.Errorf("expected genesis block, got index %d", blk.Header.Index)
	}

	missing := call(t, s, "chain_getBlockByIndex", IndexParam{Index: 99})
	if missing.Error == nil || missing.Error.Code != CodeNotFound {
		t.Errorf("expected CodeNotFound for a missing block, got %+v", missing.Error)
	}
}

func TestServer_ChainGetBlockByHash(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	genesis, ok := n.GetBlockByIndex(0)
	if !ok {
		t.Fatal("expected a genesis block")
	}
	resp := call(t, s, "chain_getBlockByHash", HashParam{Hash: genesis.Hash.String()})
	var blk BlockResult
	decodeResult(t, resp, &blk)
	if blk.Hash != genesis.Hash.String() {
		t.Errorf("expected hash %s, got %s", genesis.Hash.String(), blk.Hash)
	}

	bad := call(t, s, "chain_getBlockByHash", HashParam{Hash: "not-hex"})
	if bad.Error == nil || bad.Error.Code != CodeInvalidParams {
		t.Errorf("expected CodeInvalidParams for a malformed hash, got %+v", bad.Error)
	}
}

func TestServer_ChainIsValid(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "chain_isValid", nil)
	var result map[string]interface{}
	decodeResult(t, resp, &result)
	if valid, _ := result["valid"].(bool); !valid {
		t.Errorf("expected a fresh chain to be valid, got %+v", result)
	}
}

func TestServer_AccountGetBalance_InvalidAddress(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "account_getBalance", AddressParam{Address: "not-an-address"})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("expected CodeInvalidParams, got %+v", resp.Error)
	}
}

func TestServer_WalletCreateAndBalance(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "wallet_create", nil)
	var w WalletResult
	decodeResult(t, resp, &w)
	if w.Address == "" || w.Mnemonic == "" {
		t.Fatalf("expected a populated wallet result, got %+v", w)
	}

	balResp := call(t, s, "account_getBalance", AddressParam{Address: w.Address})
	var bal BalanceResult
	decodeResult(t, balResp, &bal)
	if bal.Balance != 0 {
		t.Errorf("expected a fresh wallet to have zero balance, got %d", bal.Balance)
	}
}

func TestServer_WalletRestore_RoundTrips(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	created := call(t, s, "wallet_create", nil)
	var w WalletResult
	decodeResult(t, created, &w)

	restored := call(t, s, "wallet_restore", RestoreWalletParam{Mnemonic: w.Mnemonic})
	var r WalletResult
	decodeResult(t, restored, &r)
	if r.Address != w.Address {
		t.Errorf("expected restoring the mnemonic to recover address %s, got %s", w.Address, r.Address)
	}
}

func TestServer_TxSubmit_RejectsUnknownSender(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	recipient, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	txn := &tx.Transaction{ID: "t1", From: kp.Address, To: recipient.Address, Amount: 5, Timestamp: time.Now().Unix()}
	if err := txn.Sign(kp.Private); err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp := call(t, s, "tx_submit", TxSubmitParam{Transaction: txn})
	if resp.Error == nil || resp.Error.Code != CodeInvalidParams {
		t.Errorf("expected CodeInvalidParams for an unregistered sender, got %+v", resp.Error)
	}
}

func TestServer_MiningMineBlock_AndTxFlow(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	wcResp := call(t, s, "wallet_create", nil)
	var miner WalletResult
	decodeResult(t, wcResp, &miner)

	mineResp := call(t, s, "mining_mineBlock", MineBlockParam{MinerAddress: miner.Address})
	var blk BlockResult
	decodeResult(t, mineResp, &blk)
	if blk.Header.Index != 1 {
		t.Fatalf("expected block index 1, got %d", blk.Header.Index)
	}

	balResp := call(t, s, "account_getBalance", AddressParam{Address: miner.Address})
	var bal BalanceResult
	decodeResult(t, balResp, &bal)
	if bal.Balance == 0 {
		t.Error("expected the coinbase reward to raise the miner's balance")
	}
}

func TestServer_MempoolEndpoints(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	infoResp := call(t, s, "mempool_getInfo", nil)
	var info MempoolInfoResult
	decodeResult(t, infoResp, &info)
	if info.Size != 0 {
		t.Errorf("expected an empty mempool, got size %d", info.Size)
	}

	contentResp := call(t, s, "mempool_getContent", nil)
	var content []*tx.Transaction
	decodeResult(t, contentResp, &content)
	if len(content) != 0 {
		t.Errorf("expected no pending transactions, got %d", len(content))
	}
}

func TestServer_NetEndpoints_P2PDisabled(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	peersResp := call(t, s, "net_getPeers", nil)
	var peers PeersResult
	decodeResult(t, peersResp, &peers)
	if len(peers.Peers) != 0 {
		t.Errorf("expected no peers when p2p is disabled, got %v", peers.Peers)
	}

	connResp := call(t, s, "net_connect", ConnectPeerParam{Addr: "127.0.0.1:9"})
	if connResp.Error == nil {
		t.Error("expected net_connect to fail when p2p is disabled")
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	resp := call(t, s, "does_not_exist", nil)
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("expected CodeMethodNotFound, got %+v", resp.Error)
	}
}

func TestServer_RejectsNonPostAndBadJSON(t *testing.T) {
	n := testNode(t)
	s := startTestServer(t, n)

	getResp, err := http.Get("http://" + s.Addr() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	var out Response
	json.NewDecoder(getResp.Body).Decode(&out)
	if out.Error == nil || out.Error.Code != CodeInvalidRequest {
		t.Errorf("expected CodeInvalidRequest for a GET request, got %+v", out.Error)
	}

	postResp, err := http.Post("http://"+s.Addr()+"/", "application/json", bytes.NewReader([]byte("not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer postResp.Body.Close()
	var out2 Response
	json.NewDecoder(postResp.Body).Decode(&out2)
	if out2.Error == nil || out2.Error.Code != CodeParseError {
		t.Errorf("expected CodeParseError for malformed JSON, got %+v", out2.Error)
	}
}
