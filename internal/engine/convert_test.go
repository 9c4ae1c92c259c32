package engine

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/textfsm/internal/ir"
)

func TestLowercaseKeys(t *testing.T) {
	in := ir.Record{"INTERFACE": ir.Scalar("Gi0/1"), "VLANS": ir.List{"10", "20"}}

	out := LowercaseKeys(in)
	assert.Equal(t, ir.Record{"interface": ir.Scalar("Gi0/1"), "vlans": ir.List{"10", "20"}}, out)
	assert.Contains(t, in, "INTERFACE", "input record is left alone")
}

func TestLowercaseKeys_CollisionIsDeterministic(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	in := ir.Record{"Name": ir.Scalar("mixed"), "NAME": ir.Scalar("upper")}
	for range 10 {
		assert.Equal(t, ir.Record{"name": ir.Scalar("upper")}, LowercaseKeys(in))
	}
	assert.Contains(t, buf.String(), "collide")
	assert.Contains(t, buf.String(), "dropped=Name")
}

func TestLowerName(t *testing.T) {
	assert.Equal(t, "ip_address", LowerName("IP_ADDRESS"))
	assert.Equal(t, "mixed9", LowerName("MiXeD9"))
	assert.Equal(t, "", LowerName(""))
}

func TestConvert(t *testing.T) {
	records := []ir.Record{{"A": ir.Scalar("1")}, {"B": ir.Scalar("2")}}

	assert.Equal(t, records, Convert(records), "no conversions returns the input")

	tag := func(r ir.Record) ir.Record {
		out := r.Clone()
		out["seen"] = ir.Scalar("yes")
		return out
	}
	got := Convert(records, LowercaseKeys, tag)
	assert.Equal(t, []ir.Record{
		{"a": ir.Scalar("1"), "seen": ir.Scalar("yes")},
		{"b": ir.Scalar("2"), "seen": ir.Scalar("yes")},
	}, got)
	assert.Equal(t, ir.Record{"A": ir.Scalar("1")}, records[0])
}
