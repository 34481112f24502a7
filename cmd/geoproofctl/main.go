package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"geoproof/internal/authz"
	"geoproof/internal/payload"
	"geoproof/internal/totp"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "token":
		err = runToken(args)
	case "secret":
		err = runSecret(args)
	case "code":
		err = runCode(args)
	case "encrypt":
		err = runEncrypt(args)
	case "validate":
		err = runValidate(args)
	default:
		usage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  token      Mint an HS256 bearer token for an account")
	fmt.Fprintln(os.Stderr, "  secret     Generate a device secret and its otpauth:// URI")
	fmt.Fprintln(os.Stderr, "  code       Print the current code for a secret")
	fmt.Fprintln(os.Stderr, "  encrypt    Build an encrypted payload the way a field device does")
	fmt.Fprintln(os.Stderr, "  validate   Encrypt a fresh payload and submit it")
	os.Exit(2)
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func runToken(args []string) error {
	fs := newFlagSet("token")
	secret := fs.String("secret", os.Getenv("AUTH_HS256_SECRET"), "HS256 signing secret")
	issuer := fs.String("issuer", getenv("AUTH_ISSUER", "geoproof"), "token issuer")
	subject := fs.String("subject", "", "account UUID")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*subject) == "" {
		return fmt.Errorf("subject is required")
	}

	signer, err := authz.NewSigner(*secret, *issuer)
	if err != nil {
		return err
	}
	tok, err := signer.Sign(*subject, *ttl, nil)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"subject":    *subject,
		"token":      tok,
		"expires_at": time.Now().Add(*ttl).UTC(),
	})
}

func runSecret(args []string) error {
	fs := newFlagSet("secret")
	device := fs.String("device", "", "device identifier")
	issuer := fs.String("issuer", getenv("SECRET_ISSUER", "geoproof"), "otpauth issuer label")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*device) == "" {
		return fmt.Errorf("device is required")
	}

	p, err := totp.NewSecret(*issuer, *device)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"device_id": *device,
		"secret":    p.Secret,
		"uri":       p.URI,
	})
}

func runCode(args []string) error {
	fs := newFlagSet("code")
	secret := fs.String("secret", "", "device secret (base32)")
	at := fs.Int64("at", 0, "unix time to generate for (default now)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	when := time.Now()
	if *at != 0 {
		when = time.Unix(*at, 0)
	}
	code, err := totp.Generate(*secret, when)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"code": code,
		"at":   when.UTC(),
	})
}

type encryptOpts struct {
	secret  string
	lat     float64
	lng     float64
	code    string
	device  string
	baseURL string
}

func bindEncryptFlags(fs *pflag.FlagSet, o *encryptOpts) {
	fs.StringVar(&o.secret, "secret", "", "device secret (base32)")
	fs.Float64Var(&o.lat, "lat", 0, "reported latitude")
	fs.Float64Var(&o.lng, "lng", 0, "reported longitude")
	fs.StringVar(&o.code, "code", "", "code to embed (generated from --secret if empty)")
	fs.StringVar(&o.device, "device", "", "device identifier, used to build the validation URL")
	fs.StringVar(&o.baseURL, "base-url", getenv("GEOPROOF_BASE_URL", "http://localhost:5000"), "service base URL")
}

type encrypted struct {
	Plaintext string `json:"plaintext"`
	Payload   string `json:"payload"`
	URL       string `json:"url,omitempty"`
}

func buildPayload(o encryptOpts) (encrypted, error) {
	if o.secret == "" {
		return encrypted{}, fmt.Errorf("secret is required")
	}
	code := o.code
	if code == "" {
		var err error
		if code, err = totp.Generate(o.secret, time.Now()); err != nil {
			return encrypted{}, err
		}
	}
	plain := payload.Reading{Code: code, Lat: o.lat, Lng: o.lng}.Format()
	enc, err := payload.Encrypt(o.secret, []byte(plain))
	if err != nil {
		return encrypted{}, err
	}
	out := encrypted{Plaintext: plain, Payload: enc}
	if o.device != "" {
		out.URL = strings.TrimRight(o.baseURL, "/") + "/api/validate/" + o.device + "/" + enc
	}
	return out, nil
}

func runEncrypt(args []string) error {
	fs := newFlagSet("encrypt")
	var o encryptOpts
	bindEncryptFlags(fs, &o)
	if err := fs.Parse(args); err != nil {
		return err
	}
	out, err := buildPayload(o)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func runValidate(args []string) error {
	fs := newFlagSet("validate")
	var o encryptOpts
	bindEncryptFlags(fs, &o)
	bearer := fs.String("token", os.Getenv("GEOPROOF_TOKEN"), "bearer token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(o.device) == "" {
		return fmt.Errorf("device is required")
	}
	if *bearer == "" {
		return fmt.Errorf("token is required")
	}
	built, err := buildPayload(o)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodGet, built.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+*bearer)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close response body: %v\n", cerr)
		}
	}()

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("validate request failed: %s", resp.Status)
	}
	return printJSON(struct {
		Status   int             `json:"status"`
		Response json.RawMessage `json:"response"`
	}{resp.StatusCode, body})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
