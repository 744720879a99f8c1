package models

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestRoom(t *testing.T) *Room {
	t.Helper()

	room, err := NewRoom("r1", "p", "alice", t0)
	if err != nil {
		t.Fatalf("NewRoom: %v", err)
	}

	return room
}

func approx(t *testing.T, got, want float64) {
	t.Helper()

	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("position = %v, want %v", got, want)
	}
}

func TestAuthenticate(t *testing.T) {
	room := newTestRoom(t)

	if !room.Authenticate("p") {
		t.Error("correct password rejected")
	}
	if room.Authenticate("q") {
		t.Error("wrong password accepted")
	}
}

func TestEffectivePositionFollowsWallClock(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	if err := room.LoadVideo("alice", "vid42", t0); err != nil {
		t.Fatalf("LoadVideo: %v", err)
	}

	snap := room.Snapshot(t0)
	if snap.VideoID != "vid42" || snap.IsPlaying || snap.Time != 0 {
		t.Fatalf("after load: %+v", snap)
	}

	resolved, err := room.Play("alice", t0, nil)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	approx(t, resolved, 0)

	approx(t, room.EffectivePosition(t0.Add(5*time.Second)), 5)

	resolved, err = room.Pause("alice", t0.Add(5*time.Second))
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	approx(t, resolved, 5)

	// Frozen regardless of further elapsed time.
	approx(t, room.EffectivePosition(t0.Add(time.Hour)), 5)
}

func TestEffectivePositionMonotonicWhilePlaying(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	if _, err := room.Play("alice", t0, nil); err != nil {
		t.Fatalf("Play: %v", err)
	}

	prev := room.EffectivePosition(t0)
	for i := 1; i <= 10; i++ {
		pos := room.EffectivePosition(t0.Add(time.Duration(i) * 300 * time.Millisecond))
		if pos < prev {
			t.Fatalf("position decreased: %v -> %v", prev, pos)
		}
		prev = pos
	}
}

func TestPlayClientTimeOverrides(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	clientTime := 42.5
	resolved, err := room.Play("alice", t0, &clientTime)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	approx(t, resolved, 42.5)

	// Without a client time the effective position carries over.
	if _, err := room.Pause("alice", t0.Add(2*time.Second)); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	resolved, err = room.Play("alice", t0.Add(10*time.Second), nil)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	approx(t, resolved, 44.5)
}

func TestSeekKeepsPlayingFlag(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	resolved, err := room.Seek("alice", 120, t0)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	approx(t, resolved, 120)
	if room.Snapshot(t0).IsPlaying {
		t.Error("seek while paused turned playback on")
	}

	if _, err := room.Play("alice", t0, nil); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if _, err := room.Seek("alice", 30, t0.Add(time.Second)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if !room.Snapshot(t0.Add(time.Second)).IsPlaying {
		t.Error("seek while playing turned playback off")
	}
}

func TestSeekClampsNegativeTarget(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	resolved, err := room.Seek("alice", -7, t0)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	approx(t, resolved, 0)
}

func TestLoadVideoHardResets(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")

	if err := room.LoadVideo("alice", "first", t0); err != nil {
		t.Fatalf("LoadVideo: %v", err)
	}
	if _, err := room.Play("alice", t0, nil); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := room.LoadVideo("alice", "second", t0.Add(30*time.Second)); err != nil {
		t.Fatalf("LoadVideo: %v", err)
	}

	snap := room.Snapshot(t0.Add(time.Minute))
	if snap.VideoID != "second" {
		t.Errorf("video = %q, want second", snap.VideoID)
	}
	if snap.IsPlaying {
		t.Error("new video started playing on its own")
	}
	approx(t, snap.Time, 0)
}

func TestControlRequiresPermission(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")
	room.AddMember(uuid.New(), "bob")

	before := room.Snapshot(t0)

	if err := room.LoadVideo("bob", "vid", t0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("LoadVideo err = %v, want ErrPermissionDenied", err)
	}
	if _, err := room.Play("bob", t0, nil); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Play err = %v, want ErrPermissionDenied", err)
	}
	if _, err := room.Pause("bob", t0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Pause err = %v, want ErrPermissionDenied", err)
	}
	if _, err := room.Seek("bob", 10, t0); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Seek err = %v, want ErrPermissionDenied", err)
	}
	if err := room.AddSubhost("bob", "bob"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("AddSubhost err = %v, want ErrPermissionDenied", err)
	}

	after := room.Snapshot(t0)
	if before.VideoID != after.VideoID || before.IsPlaying != after.IsPlaying ||
		before.Time != after.Time || len(before.Subhosts) != len(after.Subhosts) {
		t.Errorf("denied actions mutated state: before %+v, after %+v", before, after)
	}
}

func TestSubhostGetsControlButNotAppointment(t *testing.T) {
	room := newTestRoom(t)
	room.AddMember(uuid.New(), "alice")
	room.AddMember(uuid.New(), "carol")

	if err := room.AddSubhost("alice", "carol"); err != nil {
		t.Fatalf("AddSubhost: %v", err)
	}
	// Idempotent.
	if err := room.AddSubhost("alice", "carol"); err != nil {
		t.Fatalf("AddSubhost again: %v", err)
	}

	if !room.CanControl("carol") {
		t.Error("subhost cannot control")
	}
	if room.IsHost("carol") {
		t.Error("subhost reported as host")
	}

	resolved, err := room.Seek("carol", 120, t0)
	if err != nil {
		t.Fatalf("subhost Seek: %v", err)
	}
	approx(t, resolved, 120)

	if err := room.AddSubhost("carol", "dave"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("subhost appointed a subhost: err = %v", err)
	}
}

func TestHostPromotionPicksEarliestJoined(t *testing.T) {
	room := newTestRoom(t)

	aliceConn := uuid.New()
	bobConn := uuid.New()
	carolConn := uuid.New()

	room.AddMember(aliceConn, "alice")
	room.AddMember(bobConn, "bob")
	room.AddMember(carolConn, "carol")

	empty, newHost, hostChanged := room.RemoveMember(aliceConn)
	if empty {
		t.Fatal("room reported empty with members remaining")
	}
	if !hostChanged || newHost != "bob" {
		t.Errorf("newHost = %q (changed=%v), want bob", newHost, hostChanged)
	}
}

func TestHostSurvivesWhenNameStillPresent(t *testing.T) {
	room := newTestRoom(t)

	first := uuid.New()
	second := uuid.New()

	// Two connections sharing the host name: dropping one keeps the role.
	room.AddMember(first, "alice")
	room.AddMember(second, "alice")
	room.AddMember(uuid.New(), "bob")

	_, newHost, hostChanged := room.RemoveMember(first)
	if hostChanged || newHost != "alice" {
		t.Errorf("host = %q (changed=%v), want alice unchanged", newHost, hostChanged)
	}
}

func TestRemoveLastMemberEmptiesRoom(t *testing.T) {
	room := newTestRoom(t)

	conn := uuid.New()
	room.AddMember(conn, "alice")

	empty, _, _ := room.RemoveMember(conn)
	if !empty {
		t.Error("last leave did not report empty")
	}
}
