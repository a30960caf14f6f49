// Package advertise implements DNS-SD (_ipp._tcp) advertisement, adapted
// from this codebase's original ippsrv/mdns.go: same zeroconf.Register
// call and TXT record shape, generalized behind a ServiceAdvertiser
// interface so the HTTP front-end does not depend on zeroconf directly.
package advertise

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

const (
	serviceType = "_ipp._tcp"
	domain      = "local."
)

// Handle is an opaque reference to a registered advertisement.
type Handle interface {
	Unregister()
}

// ServiceAdvertiser registers and unregisters DNS-SD service advertisements,
// per §9's redesign note narrowing the mdns coupling to an interface.
type ServiceAdvertiser interface {
	Register(name string, port int, txt []string) (Handle, error)
}

// ZeroconfAdvertiser is the production ServiceAdvertiser, backed by
// grandcat/zeroconf.
type ZeroconfAdvertiser struct{}

func NewZeroconfAdvertiser() *ZeroconfAdvertiser { return &ZeroconfAdvertiser{} }

func (ZeroconfAdvertiser) Register(name string, port int, txt []string) (Handle, error) {
	srv, err := zeroconf.Register(name, serviceType, domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service %q: %w", name, err)
	}
	return (*zeroconfHandle)(srv), nil
}

type zeroconfHandle zeroconf.Server

func (h *zeroconfHandle) Unregister() {
	(*zeroconf.Server)(h).Shutdown()
}

// Identity carries the fields the TXT record builder needs, per §6's
// exact key list.
type Identity struct {
	MakeAndModel string
	AdminURL     string
	Priority     int
}

// TXTRecords builds the DNS-SD TXT record set for the given identity,
// matching §6's key list: URF, adminurl, rp, pdl, txtvers, priority,
// qtotal, kind, TLS.
func TXTRecords(id Identity) []string {
	return []string{
		"txtvers=1",
		fmt.Sprintf("qtotal=%d", 1),
		"rp=ipp/print",
		"ty=" + id.MakeAndModel,
		"adminurl=" + id.AdminURL,
		fmt.Sprintf("priority=%d", id.Priority),
		"kind=document",
		"pdl=application/pdf,image/urf",
		"URF=none",
		"TLS=1.2",
	}
}

// Advertiser owns the registered handle for the printer's single service
// advertisement and allows it to be re-registered when identity changes
// (e.g. after set-printer-name).
type Advertiser struct {
	svc  ServiceAdvertiser
	port int

	handle Handle
}

func New(svc ServiceAdvertiser, port int) *Advertiser {
	return &Advertiser{svc: svc, port: port}
}

// Publish registers (or re-registers) the advertisement under the given
// identity, replacing any prior registration.
func (a *Advertiser) Publish(id Identity) error {
	if a.handle != nil {
		a.handle.Unregister()
		a.handle = nil
	}
	h, err := a.svc.Register(id.MakeAndModel, a.port, TXTRecords(id))
	if err != nil {
		return err
	}
	a.handle = h
	return nil
}

// Close unregisters the current advertisement, if any.
func (a *Advertiser) Close() {
	if a.handle != nil {
		a.handle.Unregister()
		a.handle = nil
	}
}
