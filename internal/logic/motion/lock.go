package motion

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cjeanneret/DriveGo/internal/debug"
)

var (
	// ErrLockHeld is returned when another owner already drives the actuators.
	ErrLockHeld = errors.New("drivetrain is owned by another controller")
	// ErrNotOwner is returned when a stale or foreign token is used.
	ErrNotOwner = errors.New("token does not own the drivetrain")
)

// Actuators is the drivetrain output side.
type Actuators interface {
	SetVelocity(leftRate, leftFF, rightRate, rightFF float64) error
	SetPercent(left, right float64) error
	Neutral() error
}

// Token proves exclusive ownership of the drivetrain.
type Token struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
}

// DriveLock grants exclusive write access to the actuators to one owner at
// a time. Commands are only forwarded for the current token.
type DriveLock struct {
	mu     sync.Mutex
	act    Actuators
	holder *Token
}

// NewDriveLock wraps the actuators.
func NewDriveLock(act Actuators) *DriveLock {
	return &DriveLock{act: act}
}

// Acquire takes ownership for owner. Returns ErrLockHeld if already owned.
func (l *DriveLock) Acquire(owner string) (Token, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder != nil {
		return Token{}, fmt.Errorf("%w: held by %s", ErrLockHeld, l.holder.Owner)
	}
	t := Token{ID: uuid.New().String(), Owner: owner}
	l.holder = &t
	debug.Live("Drivetrain acquired by %s (%s)", owner, t.ID)
	return t, nil
}

// Release gives ownership back.
func (l *DriveLock) Release(t Token) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == nil || l.holder.ID != t.ID {
		return ErrNotOwner
	}
	l.holder = nil
	debug.Live("Drivetrain released by %s", t.Owner)
	return nil
}

// Holder returns the current owner, if any.
func (l *DriveLock) Holder() (Token, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == nil {
		return Token{}, false
	}
	return *l.holder, true
}

// Apply forwards cmd to the actuators if t is the current owner.
func (l *DriveLock) Apply(t Token, cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == nil || l.holder.ID != t.ID {
		return ErrNotOwner
	}
	switch cmd.Mode {
	case ModeNeutral:
		return l.act.Neutral()
	case ModeVelocity:
		return l.act.SetVelocity(cmd.Left, cmd.LeftFeedforward, cmd.Right, cmd.RightFeedforward)
	case ModePercent:
		return l.act.SetPercent(clampUnit(cmd.Left), clampUnit(cmd.Right))
	default:
		return fmt.Errorf("unknown command mode: %v", cmd.Mode)
	}
}
