package hub

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresence(t *testing.T) {
	req := require.New(t)
	p := NewPresence()

	a1 := newFakeConn("alice")
	a2 := newFakeConn("alice")
	b := newFakeConn("bob")

	req.True(p.Register(a1))
	req.False(p.Register(a2))
	req.True(p.Register(b))
	req.Equal(2, p.Count())
	req.ElementsMatch([]Conn{a1, a2}, p.Lookup("alice"))
	req.Equal([]string{"bob", "alice"}, p.Online([]string{"bob", "carol", "alice"}))

	req.False(p.Unregister(newFakeConn("carol")))
	req.False(p.Unregister(a1))
	req.False(p.Unregister(a1))
	req.True(p.Unregister(a2))
	req.False(p.IsOnline("alice"))
	req.Empty(p.Lookup("alice"))
	req.Equal([]string{}, p.Online([]string{"alice"}))
}
