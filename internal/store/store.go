// Package store holds the in-memory mirror of the four backend tables.
// All mutation funnels through this container: action services write
// optimistically before the remote write confirms, and change-feed events
// are merged in by table and primary key.
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/models"
)

// Store is the mutable view state shared by every role surface. Reads
// return copies; callers never hold references into the mirror.
//
// Each record carries a monotonic version assigned on local write. Feed
// echoes carrying an older version than the locally-known one are rejected
// instead of blindly applying last-write-wins.
type Store struct {
	mu       sync.RWMutex
	students []models.Student
	parents  []models.Parent
	pickups  []models.PickupRequest
	sessions []models.Session
	versions map[string]uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{versions: make(map[string]uint64)}
}

func versionKey(table, id string) string {
	return table + ":" + id
}

// LoadStudents replaces the student mirror wholesale (boot-time full fetch).
func (s *Store) LoadStudents(items []models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = append([]models.Student(nil), items...)
}

// LoadParents replaces the parent mirror wholesale.
func (s *Store) LoadParents(items []models.Parent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parents = append([]models.Parent(nil), items...)
}

// LoadPickups replaces the pickup queue mirror wholesale.
func (s *Store) LoadPickups(items []models.PickupRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pickups = append([]models.PickupRequest(nil), items...)
}

// LoadSessions replaces the session mirror wholesale.
func (s *Store) LoadSessions(items []models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]models.Session(nil), items...)
}

// Students returns a snapshot copy of the student mirror.
func (s *Store) Students() []models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Student(nil), s.students...)
}

// Parents returns a snapshot copy of the parent mirror.
func (s *Store) Parents() []models.Parent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Parent(nil), s.parents...)
}

// PickupQueue returns a snapshot copy of the pickup request mirror.
func (s *Store) PickupQueue() []models.PickupRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PickupRequest(nil), s.pickups...)
}

// Sessions returns a snapshot copy of the session mirror.
func (s *Store) Sessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Session(nil), s.sessions...)
}

// StudentByID looks up a student by primary key.
func (s *Store) StudentByID(id string) (models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, student := range s.students {
		if student.ID == id {
			return student, true
		}
	}
	return models.Student{}, false
}

// StudentByCode looks up a student by access code.
func (s *Store) StudentByCode(code string) (models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, student := range s.students {
		if student.AccessCode == code {
			return student, true
		}
	}
	return models.Student{}, false
}

// ParentByID looks up a parent by primary key.
func (s *Store) ParentByID(id string) (models.Parent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, parent := range s.parents {
		if parent.ID == id {
			return parent, true
		}
	}
	return models.Parent{}, false
}

// ParentByStudent resolves the parent paired with a student.
func (s *Store) ParentByStudent(studentID string) (models.Parent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, parent := range s.parents {
		if parent.StudentID == studentID {
			return parent, true
		}
	}
	return models.Parent{}, false
}

// PickupByID looks up a pickup request by primary key.
func (s *Store) PickupByID(id string) (models.PickupRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.pickups {
		if request.ID == id {
			return request, true
		}
	}
	return models.PickupRequest{}, false
}

// PickupByStudent finds the pickup request matched to a student, if any.
func (s *Store) PickupByStudent(studentID string) (models.PickupRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, request := range s.pickups {
		if request.StudentID == studentID {
			return request, true
		}
	}
	return models.PickupRequest{}, false
}

// ActiveSession returns the session flagged active, if one exists.
func (s *Store) ActiveSession() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.IsActive {
			return session, true
		}
	}
	return models.Session{}, false
}

// PutStudent upserts a student locally and returns the new record version.
func (s *Store) PutStudent(student models.Student) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.students {
		if s.students[i].ID == student.ID {
			s.students[i] = student
			return s.bumpVersion(feed.TableStudents, student.ID)
		}
	}
	s.students = append(s.students, student)
	return s.bumpVersion(feed.TableStudents, student.ID)
}

// PutParent upserts a parent locally and returns the new record version.
func (s *Store) PutParent(parent models.Parent) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.parents {
		if s.parents[i].ID == parent.ID {
			s.parents[i] = parent
			return s.bumpVersion(feed.TableParents, parent.ID)
		}
	}
	s.parents = append(s.parents, parent)
	return s.bumpVersion(feed.TableParents, parent.ID)
}

// PutPickup upserts a pickup request locally and returns the new version.
func (s *Store) PutPickup(request models.PickupRequest) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pickups {
		if s.pickups[i].ID == request.ID {
			// Only claimAnnounce/EndAnnounce may change the in-flight
			// flag; a write based on a copy read before the claim must
			// not release it.
			request.Announcing = s.pickups[i].Announcing
			s.pickups[i] = request
			return s.bumpVersion(feed.TablePickups, request.ID)
		}
	}
	s.pickups = append(s.pickups, request)
	return s.bumpVersion(feed.TablePickups, request.ID)
}

// PutSession upserts a session locally and returns the new record version.
func (s *Store) PutSession(session models.Session) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == session.ID {
			s.sessions[i] = session
			return s.bumpVersion(feed.TableSessions, session.ID)
		}
	}
	s.sessions = append(s.sessions, session)
	return s.bumpVersion(feed.TableSessions, session.ID)
}

// SetSessionsActive flags the session matching id as the only active one and
// returns the new versions keyed by session id.
func (s *Store) SetSessionsActive(id string) map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := make(map[string]uint64, len(s.sessions))
	for i := range s.sessions {
		s.sessions[i].IsActive = s.sessions[i].ID == id
		versions[s.sessions[i].ID] = s.bumpVersion(feed.TableSessions, s.sessions[i].ID)
	}
	return versions
}

// BeginAnnounce atomically claims the in-flight announcement slot for a
// request. It returns false when the request is missing, already announced,
// or already being announced. This is the single mutual-exclusion point
// preventing re-entrant double announcements on one node.
func (s *Store) BeginAnnounce(requestID string) (models.PickupRequest, bool) {
	return s.claimAnnounce(requestID, false)
}

// ClaimAnnounce claims the in-flight slot for a manual re-announcement,
// ignoring the HasAnnounced flag.
func (s *Store) ClaimAnnounce(requestID string) (models.PickupRequest, bool) {
	return s.claimAnnounce(requestID, true)
}

func (s *Store) claimAnnounce(requestID string, force bool) (models.PickupRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pickups {
		if s.pickups[i].ID != requestID {
			continue
		}
		if s.pickups[i].Announcing || (!force && s.pickups[i].HasAnnounced) {
			return models.PickupRequest{}, false
		}
		s.pickups[i].Announcing = true
		return s.pickups[i], true
	}
	return models.PickupRequest{}, false
}

// EndAnnounce clears the in-flight announcement flag for a request.
func (s *Store) EndAnnounce(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pickups {
		if s.pickups[i].ID == requestID {
			s.pickups[i].Announcing = false
			return
		}
	}
}

// Reset drops every mirrored record and all version bookkeeping.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students = nil
	s.parents = nil
	s.pickups = nil
	s.sessions = nil
	s.versions = make(map[string]uint64)
}

// Apply merges a change-feed event into the mirror: insert appends, update
// replaces by id, delete filters by id. Events for unknown tables are
// accepted without a state change so synthetic feeds pass through. Returns
// false for stale echoes (event version at or below the known version).
func (s *Store) Apply(event feed.Event) bool {
	switch event.Table {
	case feed.TableStudents, feed.TableParents, feed.TablePickups, feed.TableSessions:
	default:
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Version != 0 && event.Version <= s.versions[versionKey(event.Table, event.ID)] {
		return false
	}

	if err := s.applyLocked(event); err != nil {
		return false
	}

	if event.Version != 0 {
		s.versions[versionKey(event.Table, event.ID)] = event.Version
	}
	return true
}

func (s *Store) applyLocked(event feed.Event) error {
	if event.Type == feed.TypeDelete {
		s.deleteLocked(event.Table, event.ID)
		return nil
	}

	switch event.Table {
	case feed.TableStudents:
		var record models.Student
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return fmt.Errorf("decode student event: %w", err)
		}
		s.upsertStudentLocked(record)
	case feed.TableParents:
		var record models.Parent
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return fmt.Errorf("decode parent event: %w", err)
		}
		s.upsertParentLocked(record)
	case feed.TablePickups:
		var record models.PickupRequest
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return fmt.Errorf("decode pickup event: %w", err)
		}
		s.upsertPickupLocked(record)
	case feed.TableSessions:
		var record models.Session
		if err := json.Unmarshal(event.Record, &record); err != nil {
			return fmt.Errorf("decode session event: %w", err)
		}
		s.upsertSessionLocked(record)
	}
	return nil
}

func (s *Store) upsertStudentLocked(record models.Student) {
	for i := range s.students {
		if s.students[i].ID == record.ID {
			s.students[i] = record
			return
		}
	}
	s.students = append(s.students, record)
}

func (s *Store) upsertParentLocked(record models.Parent) {
	for i := range s.parents {
		if s.parents[i].ID == record.ID {
			s.parents[i] = record
			return
		}
	}
	s.parents = append(s.parents, record)
}

func (s *Store) upsertPickupLocked(record models.PickupRequest) {
	for i := range s.pickups {
		if s.pickups[i].ID == record.ID {
			// Preserve the in-flight announcement flag; it is node-local
			// state and never travels on the feed.
			record.Announcing = s.pickups[i].Announcing
			s.pickups[i] = record
			return
		}
	}
	s.pickups = append(s.pickups, record)
}

func (s *Store) upsertSessionLocked(record models.Session) {
	for i := range s.sessions {
		if s.sessions[i].ID == record.ID {
			s.sessions[i] = record
			return
		}
	}
	s.sessions = append(s.sessions, record)
}

func (s *Store) deleteLocked(table, id string) {
	switch table {
	case feed.TableStudents:
		out := s.students[:0]
		for _, item := range s.students {
			if item.ID != id {
				out = append(out, item)
			}
		}
		s.students = out
	case feed.TableParents:
		out := s.parents[:0]
		for _, item := range s.parents {
			if item.ID != id {
				out = append(out, item)
			}
		}
		s.parents = out
	case feed.TablePickups:
		out := s.pickups[:0]
		for _, item := range s.pickups {
			if item.ID != id {
				out = append(out, item)
			}
		}
		s.pickups = out
	case feed.TableSessions:
		out := s.sessions[:0]
		for _, item := range s.sessions {
			if item.ID != id {
				out = append(out, item)
			}
		}
		s.sessions = out
	}
}

func (s *Store) bumpVersion(table, id string) uint64 {
	key := versionKey(table, id)
	s.versions[key]++
	return s.versions[key]
}
