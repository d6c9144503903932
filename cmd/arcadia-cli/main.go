package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"arcadia/cmd/internal/passphrase"
	"arcadia/crypto"
)

const keystorePassEnv = "ARCADIA_KEYSTORE_PASS"

var rpcEndpoint = defaultRPCEndpoint()
var rpcAuthToken = os.Getenv("ARCADIA_RPC_TOKEN")

func defaultRPCEndpoint() string {
	if url := strings.TrimSpace(os.Getenv("ARCADIA_RPC_URL")); url != "" {
		return url
	}
	return "http://127.0.0.1:8080"
}

func main() {
	args := os.Args[1:]
	args = applyGlobalFlags(args)

	if len(args) < 1 {
		printUsage()
		return
	}

	switch command := args[0]; command {
	case "keys":
		runKeysCommand(args[1:])
	case "stake":
		requireArgs(args, 4, "stake <caller> <pool> <amount> [beneficiary]")
		params := map[string]string{"caller": args[1], "pool": args[2], "amount": args[3]}
		method := "lpstake_stake"
		if len(args) > 4 {
			params["beneficiary"] = args[4]
			method = "lpstake_stakeFor"
		}
		call(method, params)
	case "unstake":
		requireArgs(args, 4, "unstake <caller> <pool> <amount> [recipient]")
		params := map[string]string{"caller": args[1], "pool": args[2], "amount": args[3]}
		method := "lpstake_unstake"
		if len(args) > 4 {
			params["recipient"] = args[4]
			method = "lpstake_unstakeFor"
		}
		call(method, params)
	case "balance":
		requireArgs(args, 3, "balance <account> <pool>")
		call("lpstake_getUserBalance", map[string]string{"account": args[1], "pool": args[2]})
	case "pool-balance":
		requireArgs(args, 2, "pool-balance <pool>")
		call("lpstake_getPoolBalance", map[string]string{"pool": args[1]})
	case "boost":
		requireArgs(args, 3, "boost <account> <pool>")
		call("lpstake_getBoost", map[string]string{"account": args[1], "pool": args[2]})
	case "time-to-full-boost":
		requireArgs(args, 3, "time-to-full-boost <account> <pool>")
		call("lpstake_getTimeToFullBoost", map[string]string{"account": args[1], "pool": args[2]})
	case "update-boost":
		requireArgs(args, 3, "update-boost <account> <pool>")
		call("lpstake_updateBoost", map[string]string{"account": args[1], "pool": args[2]})
	case "checkpoint":
		requireArgs(args, 3, "checkpoint <account> <pool>")
		call("lpstake_checkpoint", map[string]string{"account": args[1], "pool": args[2]})
	case "claimable":
		requireArgs(args, 2, "claimable <pool>")
		call("lpstake_claimable", map[string]string{"pool": args[1]})
	case "claim":
		requireArgs(args, 3, "claim <caller> <pool>")
		call("lpstake_claim", map[string]string{"caller": args[1], "pool": args[2]})
	case "pools":
		call("lpstake_listPools", nil)
	case "emission":
		call("lpstake_emissionRate", nil)
	case "history":
		runHistoryCommand(args[1:])
	case "pause":
		requireArgs(args, 3, "pause <caller> <module>")
		call("lpstake_pause", map[string]string{"caller": args[1], "module": args[2]})
	case "resume":
		requireArgs(args, 3, "resume <caller> <module>")
		call("lpstake_resume", map[string]string{"caller": args[1], "module": args[2]})
	case "shutdown":
		requireArgs(args, 2, "shutdown <caller>")
		call("lpstake_shutdown", map[string]string{"caller": args[1]})
	case "set-price":
		requireArgs(args, 3, "set-price <symbol> <rate>")
		call("lpstake_setManualPrice", map[string]string{"symbol": args[1], "rate": args[2]})
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

// applyGlobalFlags strips --rpc <url> / --rpc=<url> before command dispatch.
func applyGlobalFlags(args []string) []string {
	out := args[:0]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--rpc requires a URL")
				os.Exit(1)
			}
			i++
			rpcEndpoint = args[i]
		case strings.HasPrefix(arg, "--rpc="):
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
		default:
			out = append(out, arg)
		}
	}
	return out
}

func requireArgs(args []string, min int, usage string) {
	if len(args) < min {
		fmt.Fprintf(os.Stderr, "Usage: arcadia-cli %s\n", usage)
		os.Exit(1)
	}
}

func runKeysCommand(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: arcadia-cli keys <new|show> <keystore-file>")
		os.Exit(1)
	}
	path := args[1]
	pass := passphrase.NewSource(keystorePassEnv)
	switch args[0] {
	case "new":
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Refusing to overwrite existing keystore %s\n", path)
			os.Exit(1)
		}
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			fatal("generate key", err)
		}
		secret, err := pass.Get()
		if err != nil {
			fatal("read passphrase", err)
		}
		if err := crypto.SaveToKeystore(path, key, secret); err != nil {
			fatal("save keystore", err)
		}
		fmt.Printf("Address: %s\n", key.PubKey().Address().String())
	case "show":
		secret, err := pass.Get()
		if err != nil {
			fatal("read passphrase", err)
		}
		key, err := crypto.LoadFromKeystore(path, secret)
		if err != nil {
			fatal("load keystore", err)
		}
		fmt.Printf("Address: %s\n", key.PubKey().Address().String())
	default:
		fmt.Fprintf(os.Stderr, "Unknown keys subcommand %q\n", args[0])
		os.Exit(1)
	}
}

func runHistoryCommand(args []string) {
	params := map[string]interface{}{}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pool":
			i++
			if i >= len(args) {
				fatal("parse flags", fmt.Errorf("--pool requires a value"))
			}
			params["pool"] = args[i]
		case "--account":
			i++
			if i >= len(args) {
				fatal("parse flags", fmt.Errorf("--account requires a value"))
			}
			params["account"] = args[i]
		case "--cursor":
			i++
			if i >= len(args) {
				fatal("parse flags", fmt.Errorf("--cursor requires a value"))
			}
			cursor, err := strconv.ParseUint(args[i], 10, 64)
			if err != nil {
				fatal("parse cursor", err)
			}
			params["cursor"] = cursor
		case "--limit":
			i++
			if i >= len(args) {
				fatal("parse flags", fmt.Errorf("--limit requires a value"))
			}
			limit, err := strconv.Atoi(args[i])
			if err != nil {
				fatal("parse limit", err)
			}
			params["limit"] = limit
		default:
			fatal("parse flags", fmt.Errorf("unknown flag %q", args[i]))
		}
	}
	call("lpstake_history", params)
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func call(method string, params interface{}) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{},
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fatal("encode request", err)
	}
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewReader(body))
	if err != nil {
		fatal("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if rpcAuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+rpcAuthToken)
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal("call node", err)
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		fatal("decode response", err)
	}
	if decoded.Error != nil {
		fmt.Fprintf(os.Stderr, "Error %d: %s\n", decoded.Error.Code, decoded.Error.Message)
		os.Exit(1)
	}
	pretty := &bytes.Buffer{}
	if err := json.Indent(pretty, decoded.Result, "", "  "); err != nil {
		fmt.Println(string(decoded.Result))
		return
	}
	fmt.Println(pretty.String())
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", action, err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`arcadia-cli - interact with an arcadiad node

Global flags:
  --rpc <url>          node RPC endpoint (default http://127.0.0.1:8080, or ARCADIA_RPC_URL)

Environment:
  ARCADIA_RPC_TOKEN    bearer token for privileged methods
  ARCADIA_KEYSTORE_PASS  keystore passphrase for keys commands

Commands:
  keys new <file>                      generate a key and write an encrypted keystore
  keys show <file>                     print the address stored in a keystore
  stake <caller> <pool> <amount> [beneficiary]
  unstake <caller> <pool> <amount> [recipient]
  balance <account> <pool>
  pool-balance <pool>
  boost <account> <pool>
  time-to-full-boost <account> <pool>
  update-boost <account> <pool>
  checkpoint <account> <pool>
  claimable <pool>
  claim <caller> <pool>
  pools
  emission
  history [--pool P] [--account A] [--cursor N] [--limit N]
  pause <caller> <module>
  resume <caller> <module>
  shutdown <caller>
  set-price <symbol> <rate>            push a manual price override`)
}
