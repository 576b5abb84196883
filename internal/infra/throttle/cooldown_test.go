package throttle

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCooldownActivatesAndExpiresByTime(t *testing.T) {
	clock := newFakeClock()
	log := zerolog.Nop()
	g := NewCooldownGuard(clock, &log)

	if g.Active() {
		t.Fatal("guard active before any trigger")
	}

	g.Trigger(5*time.Minute, "single-file overload")
	if !g.Active() {
		t.Fatal("guard inactive right after trigger")
	}
	if g.Remaining() != 5*time.Minute {
		t.Fatalf("remaining = %s, want 5m", g.Remaining())
	}

	clock.Advance(4 * time.Minute)
	if !g.Active() {
		t.Fatal("guard expired early")
	}

	clock.Advance(time.Minute + time.Second)
	if g.Active() {
		t.Fatal("guard still active after window elapsed")
	}
}

func TestCooldownShorterRetriggerDoesNotShrinkWindow(t *testing.T) {
	clock := newFakeClock()
	log := zerolog.Nop()
	g := NewCooldownGuard(clock, &log)

	g.Trigger(10*time.Minute, "batch overload")
	g.Trigger(time.Minute, "single-file overload")

	if g.Remaining() != 10*time.Minute {
		t.Fatalf("remaining = %s, want the longer 10m window", g.Remaining())
	}
	if g.Reason() != "batch overload" {
		t.Fatalf("reason = %q, want original reason kept", g.Reason())
	}
}

func TestCooldownLongerRetriggerExtends(t *testing.T) {
	clock := newFakeClock()
	log := zerolog.Nop()
	g := NewCooldownGuard(clock, &log)

	g.Trigger(time.Minute, "single-file overload")
	g.Trigger(10*time.Minute, "batch overload")

	if g.Remaining() != 10*time.Minute {
		t.Fatalf("remaining = %s, want 10m", g.Remaining())
	}
}
