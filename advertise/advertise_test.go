package advertise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct{ unregistered *bool }

func (h *fakeHandle) Unregister() { *h.unregistered = true }

type fakeAdvertiser struct {
	calls int
	last  Identity
	txt   []string
}

func (f *fakeAdvertiser) Register(name string, port int, txt []string) (Handle, error) {
	f.calls++
	f.txt = txt
	unregistered := false
	return &fakeHandle{unregistered: &unregistered}, nil
}

func TestTXTRecordsContainsRequiredKeys(t *testing.T) {
	records := TXTRecords(Identity{MakeAndModel: "Virtual Printer", AdminURL: "http://localhost:631/", Priority: 30})
	keys := map[string]bool{}
	for _, r := range records {
		keys[r] = true
	}
	assert.Contains(t, records, "rp=ipp/print")
	assert.Contains(t, records, "txtvers=1")
	assert.Contains(t, records, "kind=document")
}

func TestAdvertiserPublishReplacesPriorRegistration(t *testing.T) {
	fa := &fakeAdvertiser{}
	a := New(fa, 631)

	require.NoError(t, a.Publish(Identity{MakeAndModel: "Printer A"}))
	first := a.handle.(*fakeHandle)
	require.NoError(t, a.Publish(Identity{MakeAndModel: "Printer B"}))

	assert.True(t, *first.unregistered)
	assert.Equal(t, 2, fa.calls)
}

func TestAdvertiserClose(t *testing.T) {
	fa := &fakeAdvertiser{}
	a := New(fa, 631)
	require.NoError(t, a.Publish(Identity{MakeAndModel: "Printer A"}))
	h := a.handle.(*fakeHandle)
	a.Close()
	assert.True(t, *h.unregistered)
	assert.Nil(t, a.handle)
}
