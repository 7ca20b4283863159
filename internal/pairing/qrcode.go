// Package pairing renders the connect URL of the daemon as a QR code so a
// phone on the same network can open the terminal.
package pairing

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/skip2/go-qrcode"
	"golang.org/x/term"
)

// DefaultPNGSize is the edge length of generated PNG codes.
const DefaultPNGSize = 256

// Info contains the addresses a client can connect to.
type Info struct {
	URL       string `json:"url"`
	WebSocket string `json:"ws"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
}

// QRGenerator generates connect QR codes.
type QRGenerator struct {
	host        string
	port        int
	externalURL string // overrides the host:port URL, e.g. behind a tunnel
}

// NewQRGenerator creates a generator for host:port. An empty or unspecified
// host is replaced by the first LAN address of the machine.
func NewQRGenerator(host string, port int) *QRGenerator {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = LANAddress()
	}
	return &QRGenerator{host: host, port: port}
}

// SetExternalURL makes the QR code point at url instead of host:port.
func (g *QRGenerator) SetExternalURL(url string) {
	g.externalURL = strings.TrimRight(url, "/")
}

// Info returns the connect information.
func (g *QRGenerator) Info() Info {
	httpURL := fmt.Sprintf("http://%s/", net.JoinHostPort(g.host, fmt.Sprint(g.port)))
	if g.externalURL != "" {
		httpURL = g.externalURL + "/"
	}

	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "ws"
	return Info{
		URL:       httpURL,
		WebSocket: wsURL,
		Host:      g.host,
		Port:      g.port,
	}
}

// GenerateTerminal generates a QR code for terminal display.
func (g *QRGenerator) GenerateTerminal() (string, error) {
	qr, err := qrcode.New(g.Info().URL, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}

// GeneratePNG generates a PNG image of the QR code. A non-positive size
// means DefaultPNGSize.
func (g *QRGenerator) GeneratePNG(size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultPNGSize
	}
	return qrcode.Encode(g.Info().URL, qrcode.Medium, size)
}

// Print writes the connect URL to w, followed by the QR code when withQR is
// set and w is an interactive terminal.
func (g *QRGenerator) Print(w io.Writer, withQR bool) {
	info := g.Info()
	_, _ = fmt.Fprintf(w, "\n  lanterm is listening on %s\n", info.URL)

	if !withQR || !isTerminal(w) {
		_, _ = fmt.Fprintln(w)
		return
	}

	qrStr, err := g.GenerateTerminal()
	if err != nil {
		_, _ = fmt.Fprintf(w, "  [Error generating QR code: %v]\n", err)
		return
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "  Scan to open on your phone:")
	_, _ = fmt.Fprintln(w)
	for _, line := range strings.Split(qrStr, "\n") {
		if line != "" {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	}
	_, _ = fmt.Fprintln(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// LANAddress returns the first non-loopback IPv4 address of the machine,
// or "localhost" when there is none.
func LANAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "localhost"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip := ipNet.IP.To4(); ip != nil && !ip.IsLinkLocalUnicast() {
				return ip.String()
			}
		}
	}
	return "localhost"
}
