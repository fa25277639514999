// Command ntv-cli provides CLI tools for interacting with a running
// registry daemon.
//
// # Commands
//
// status: Display the registry's lifecycle state and on-air text.
//
//	ntv-cli status --url=http://localhost:8080
//
// slots: List slots, or show one slot in detail.
//
//	ntv-cli slots --url=http://localhost:8080
//	ntv-cli slots --url=http://localhost:8080 --index=3
//
// bid: Place a bid on a slot.
//
//	ntv-cli bid --url=http://localhost:8080 --index=3 --account=0x... --amount=200000000000000000
//
// text: Set the display text of a won slot.
//
//	ntv-cli text --url=http://localhost:8080 --index=3 --account=0x... --text="..."
//
// keygen: Generate a fresh keypair and its derived account address, for
// callers that have no identity configured yet.
//
//	ntv-cli keygen
//
// Administrative commands (start, create, audit, sweep, settle) carry the
// admin account in --caller and are rejected by the daemon for anyone else.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/six-thirty/ntvnet/account"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "status":
		err = runStatus(args)
	case "slots":
		err = runSlots(args)
	case "bid":
		err = runBid(args)
	case "end":
		err = runEnd(args)
	case "text":
		err = runText(args)
	case "start":
		err = runStart(args)
	case "create":
		err = runCreate(args)
	case "audit":
		err = runAudit(args)
	case "sweep":
		err = runSweep(args)
	case "settle":
		err = runSettle(args)
	case "keygen":
		err = runKeygen(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ntv-cli - tools for the slot-auction registry daemon

Usage:
  ntv-cli <command> [options]

Commands:
  status    Display registry state and on-air text
  slots     List slots or show one slot
  bid       Place a bid on a slot
  end       Finalize a slot's auction
  text      Set the display text of a won slot
  keygen    Generate a keypair and its account address
  start     Bring the registry online (admin)
  create    Create the next slot (admin)
  audit     Moderate a slot's text (admin)
  sweep     Sweep proceeds to the beneficiary (admin)
  settle    Mark a claimable balance as paid out (admin)

Run 'ntv-cli <command> --help' for command-specific options.`)
}

// get fetches path from the daemon and pretty-prints the JSON response.
func get(baseURL, path string) error {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

// post sends body as JSON to path and pretty-prints the response. A
// non-empty token of the form "user:password" is sent as basic auth, for
// daemons that guard their admin routes.
func post(baseURL, path, token string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if user, pass, ok := strings.Cut(token, ":"); ok {
		req.SetBasicAuth(user, pass)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data))
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(data), "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	at := fs.String("at", "", "Evaluate at this RFC 3339 time instead of now")
	fs.Parse(args)

	path := "/api/v1/status"
	if *at != "" {
		path += "?at=" + *at
	}
	return get(*url, path)
}

func runSlots(args []string) error {
	fs := flag.NewFlagSet("slots", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Show this slot only")
	fs.Parse(args)

	if *index >= 0 {
		return get(*url, fmt.Sprintf("/api/v1/slots/%d", *index))
	}
	return get(*url, "/api/v1/slots")
}

func runBid(args []string) error {
	fs := flag.NewFlagSet("bid", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Slot index")
	acct := fs.String("account", "", "Bidder account")
	amount := fs.String("amount", "", "Bid amount in wei")
	fs.Parse(args)

	if *index < 0 {
		return fmt.Errorf("--index is required")
	}
	return post(*url, fmt.Sprintf("/api/v1/slots/%d/bid", *index), "", map[string]string{
		"account": *acct,
		"amount":  *amount,
	})
}

func runEnd(args []string) error {
	fs := flag.NewFlagSet("end", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Slot index")
	fs.Parse(args)

	if *index < 0 {
		return fmt.Errorf("--index is required")
	}
	return post(*url, fmt.Sprintf("/api/v1/slots/%d/end", *index), "", nil)
}

func runText(args []string) error {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Slot index")
	acct := fs.String("account", "", "Winner account")
	text := fs.String("text", "", "Display text")
	fs.Parse(args)

	if *index < 0 {
		return fmt.Errorf("--index is required")
	}
	return post(*url, fmt.Sprintf("/api/v1/slots/%d/text", *index), "", map[string]string{
		"account": *acct,
		"text":    *text,
	})
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	caller := fs.String("caller", "", "Administrator account")
	beneficiary := fs.String("beneficiary", "", "Treasury beneficiary account")
	onlineTime := fs.String("online-time", "", "Online time, RFC 3339, midnight UTC")
	token := fs.String("token", "", "Admin basic-auth token (user:password)")
	fs.Parse(args)

	t, err := time.Parse(time.RFC3339, *onlineTime)
	if err != nil {
		return fmt.Errorf("invalid --online-time: %v", err)
	}
	return post(*url, "/api/v1/admin/start", *token, map[string]any{
		"caller":      *caller,
		"beneficiary": *beneficiary,
		"online_time": t,
	})
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	caller := fs.String("caller", "", "Administrator account")
	token := fs.String("token", "", "Admin basic-auth token (user:password)")
	fs.Parse(args)

	return post(*url, "/api/v1/admin/slots", *token, map[string]string{"caller": *caller})
}

func runAudit(args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Slot index")
	caller := fs.String("caller", "", "Administrator account")
	status := fs.Int("status", 0, "Audit status: 1 pass, 2 reject")
	override := fs.String("override-text", "", "Override text for rejections")
	token := fs.String("token", "", "Admin basic-auth token (user:password)")
	fs.Parse(args)

	if *index < 0 {
		return fmt.Errorf("--index is required")
	}
	return post(*url, fmt.Sprintf("/api/v1/admin/slots/%d/audit", *index), *token, map[string]any{
		"caller":        *caller,
		"status":        *status,
		"override_text": *override,
	})
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	fs.Parse(args)

	addr, key, err := newIdentity()
	if err != nil {
		return err
	}
	fmt.Printf("address:     %s\nprivate-key: %s\n", addr, key)
	return nil
}

// newIdentity generates a keypair and returns the derived address alongside
// the hex-encoded private key.
func newIdentity() (account.Address, string, error) {
	addr, priv, err := account.Generate()
	if err != nil {
		return account.None, "", err
	}
	return addr, hex.EncodeToString(priv), nil
}

func runSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	index := fs.Int("index", -1, "Slot index; omit to sweep the general pool")
	caller := fs.String("caller", "", "Administrator account")
	token := fs.String("token", "", "Admin basic-auth token (user:password)")
	fs.Parse(args)

	if *index >= 0 {
		return post(*url, fmt.Sprintf("/api/v1/admin/slots/%d/sweep", *index), *token, map[string]string{"caller": *caller})
	}
	return post(*url, "/api/v1/admin/sweep", *token, map[string]string{"caller": *caller})
}

func runSettle(args []string) error {
	fs := flag.NewFlagSet("settle", flag.ExitOnError)
	url := fs.String("url", "http://localhost:8080", "Daemon base URL")
	acct := fs.String("account", "", "Account whose claimable balance was paid out")
	caller := fs.String("caller", "", "Administrator account")
	token := fs.String("token", "", "Admin basic-auth token (user:password)")
	fs.Parse(args)

	if *acct == "" {
		return fmt.Errorf("--account is required")
	}
	return post(*url, fmt.Sprintf("/api/v1/admin/ledger/%s/settle", *acct), *token, map[string]string{"caller": *caller})
}
