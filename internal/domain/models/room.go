package models

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPermissionDenied is returned by every control action requested by a
	// user who is neither host nor subhost. State stays untouched.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrWrongPassword means the supplied room password did not match. The
	// caller is expected to drop the connection.
	ErrWrongPassword = errors.New("wrong room password")
)

// Member is one live connection inside a room. The join sequence orders
// members for deterministic host promotion.
type Member struct {
	Name string
	seq  uint64
}

// Room is the authoritative state of one shared playback session. Playback
// position is never ticked forward; it is reconstructed on read from
// baseTime plus wall-clock time elapsed since lastUpdate. All state lives in
// memory only and dies with the last member.
//
// The room mutex serializes every mutation of a single room. Distinct rooms
// never contend with each other.
type Room struct {
	ID string

	mu           sync.Mutex
	passwordHash []byte
	videoID      string
	baseTime     float64
	isPlaying    bool
	lastUpdate   time.Time
	host         string
	subhosts     map[string]struct{}
	members      map[uuid.UUID]*Member
	joinSeq      uint64
}

// NewRoom creates a room for its first joiner. The first joiner's password
// is hashed and fixed for the room's whole lifetime, and the first joiner
// becomes host.
func NewRoom(id, password, firstUser string, now time.Time) (*Room, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &Room{
		ID:           id,
		passwordHash: hash,
		host:         firstUser,
		subhosts:     make(map[string]struct{}),
		members:      make(map[uuid.UUID]*Member),
		lastUpdate:   now,
	}, nil
}

// Authenticate checks a supplied password against the room's stored hash.
func (r *Room) Authenticate(password string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return bcrypt.CompareHashAndPassword(r.passwordHash, []byte(password)) == nil
}

// AddMember registers a connection under the given display name.
func (r *Room) AddMember(connID uuid.UUID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.joinSeq++
	r.members[connID] = &Member{Name: name, seq: r.joinSeq}
}

// RemoveMember drops a connection from the room. When the departing
// connection carried the host name and no other connection shares it, the
// earliest-joined remaining member is promoted. The empty result tells the
// registry to delete the room.
func (r *Room) RemoveMember(connID uuid.UUID) (empty bool, newHost string, hostChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return len(r.members) == 0, r.host, false
	}

	delete(r.members, connID)

	if !r.hasMemberNamed(m.Name) {
		delete(r.subhosts, m.Name)
	}

	if len(r.members) == 0 {
		r.host = ""
		return true, "", false
	}

	if m.Name == r.host && !r.hasMemberNamed(m.Name) {
		r.host = r.earliestMember().Name
		return false, r.host, true
	}

	return false, r.host, false
}

func (r *Room) hasMemberNamed(name string) bool {
	for _, m := range r.members {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (r *Room) earliestMember() *Member {
	var earliest *Member
	for _, m := range r.members {
		if earliest == nil || m.seq < earliest.seq {
			earliest = m
		}
	}
	return earliest
}

// EffectivePosition is the playback position the room shows right now:
// frozen at baseTime while paused, baseTime plus elapsed wall-clock time
// while playing.
func (r *Room) EffectivePosition(now time.Time) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.position(now)
}

// position assumes the room lock is held.
func (r *Room) position(now time.Time) float64 {
	if !r.isPlaying {
		return r.baseTime
	}

	return r.baseTime + now.Sub(r.lastUpdate).Seconds()
}

// IsHost reports whether the given user currently holds the host role.
func (r *Room) IsHost(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.isHost(user)
}

func (r *Room) isHost(user string) bool {
	return user != "" && user == r.host
}

// CanControl reports whether the user may mutate playback: host or subhost.
func (r *Room) CanControl(user string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.canControl(user)
}

func (r *Room) canControl(user string) bool {
	if r.isHost(user) {
		return true
	}

	_, ok := r.subhosts[user]
	return ok
}

// AddSubhost grants playback control to target. Host only, idempotent.
func (r *Room) AddSubhost(requester, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isHost(requester) {
		return ErrPermissionDenied
	}

	r.subhosts[target] = struct{}{}
	return nil
}

// LoadVideo swaps the loaded media and hard-resets playback: a new video
// invalidates the previous position on purpose.
func (r *Room) LoadVideo(requester, videoID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canControl(requester) {
		return ErrPermissionDenied
	}

	r.videoID = videoID
	r.baseTime = 0
	r.isPlaying = false
	r.lastUpdate = now

	return nil
}

// Play resumes playback and returns the resolved position. A caller-supplied
// clientTime wins over the server-computed position so the controller's
// local scrub position is preserved; without it the current effective
// position carries over and playback resumes without a jump.
func (r *Room) Play(requester string, now time.Time, clientTime *float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canControl(requester) {
		return 0, ErrPermissionDenied
	}

	if clientTime != nil {
		r.baseTime = max(0, *clientTime)
	} else {
		r.baseTime = r.position(now)
	}
	r.isPlaying = true
	r.lastUpdate = now

	return r.baseTime, nil
}

// Pause freezes playback at the current effective position and returns it.
func (r *Room) Pause(requester string, now time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canControl(requester) {
		return 0, ErrPermissionDenied
	}

	r.baseTime = r.position(now)
	r.isPlaying = false
	r.lastUpdate = now

	return r.baseTime, nil
}

// Seek jumps to the target position, leaving the play/pause flag as is.
func (r *Room) Seek(requester string, target float64, now time.Time) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.canControl(requester) {
		return 0, ErrPermissionDenied
	}

	r.baseTime = max(0, target)
	r.lastUpdate = now

	return r.baseTime, nil
}

// HasMember reports whether the connection is currently a room member.
func (r *Room) HasMember(connID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.members[connID]
	return ok
}

// RoomSnapshot is a point-in-time view of a room with the playback position
// already resolved.
type RoomSnapshot struct {
	ID        string   `json:"id"`
	VideoID   string   `json:"video_id"`
	Time      float64  `json:"time"`
	IsPlaying bool     `json:"is_playing"`
	Host      string   `json:"host"`
	Subhosts  []string `json:"subhosts"`
	Members   []string `json:"members"`
}

// Snapshot resolves the room into a broadcastable view. Members come in join
// order, subhosts sorted by name.
func (r *Room) Snapshot(now time.Time) RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}

	subhosts := make([]string, 0, len(r.subhosts))
	for name := range r.subhosts {
		subhosts = append(subhosts, name)
	}
	sort.Strings(subhosts)

	return RoomSnapshot{
		ID:        r.ID,
		VideoID:   r.videoID,
		Time:      r.position(now),
		IsPlaying: r.isPlaying,
		Host:      r.host,
		Subhosts:  subhosts,
		Members:   names,
	}
}
