// Package apitest runs an in-memory task-management backend for tests.
//
// The fake speaks the same routes and JSON shapes as the real service,
// issues HS256 tokens carrying the identity claim URIs and enforces the
// role rules on the server side, so client code can be exercised end to
// end without a network dependency.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskdesk/internal/client/api"
	"github.com/dmitrijs2005/taskdesk/internal/client/identity"
	"github.com/dmitrijs2005/taskdesk/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the lifetime of tokens issued by the login route.
const DefaultTokenTTL = time.Hour

type account struct {
	user api.User
	role identity.Role
	hash []byte
}

// Server is a fake backend. The zero value is not usable, see NewServer.
type Server struct {
	*httptest.Server

	secret []byte

	mu         sync.Mutex
	users      map[int]*account
	tasks      map[int]api.Task
	nextUserID int
	nextTaskID int
	down       bool
	tokenTTL   time.Duration
	last       *http.Request
	requests   int
}

// NewServer starts a fake backend and closes it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:     common.GenerateRandByteArray(32),
		users:      make(map[int]*account),
		tasks:      make(map[int]api.Task),
		nextUserID: 1,
		nextTaskID: 1,
		tokenTTL:   DefaultTokenTTL,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/Auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/Users", s.require(s.handleListUsers, identity.RoleAdmin))
	mux.HandleFunc("GET /api/Users/count", s.require(s.handleCountUsers, identity.RoleAdmin))
	mux.HandleFunc("POST /api/Users", s.require(s.handleCreateUser, identity.RoleAdmin))
	mux.HandleFunc("PUT /api/Users/{id}", s.require(s.handleUpdateUser, identity.RoleAdmin))
	mux.HandleFunc("DELETE /api/Users/{id}", s.require(s.handleDeleteUser, identity.RoleAdmin))

	mux.HandleFunc("GET /api/Tasks", s.require(s.handleListTasks))
	mux.HandleFunc("GET /api/Tasks/count", s.require(s.handleCountTasks))
	mux.HandleFunc("POST /api/Tasks", s.require(s.handleCreateTask, identity.RoleAdmin))
	mux.HandleFunc("PUT /api/Tasks/{id}", s.require(s.handleUpdateTask, identity.RoleAdmin))
	mux.HandleFunc("DELETE /api/Tasks/{id}", s.require(s.handleDeleteTask, identity.RoleAdmin))
	mux.HandleFunc("PATCH /api/Tasks/{id}/status", s.require(s.handleChangeStatus))
	mux.HandleFunc("PATCH /api/Tasks/{id}/{userId}", s.require(s.handleAssign, identity.RoleAdmin, identity.RoleSupervisor))

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// NewClient returns an api.Client pointed at s.
func (s *Server) NewClient(t testing.TB, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.New(s.URL, opts...)
	if err != nil {
		t.Fatalf("apitest: new client: %v", err)
	}
	return c
}

// AddUser registers an account and returns it as the backend lists it.
func (s *Server) AddUser(name, email, password string, role identity.Role) api.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := api.User{ID: s.nextUserID, Name: name, Email: email, Role: role.String()}
	s.nextUserID++
	s.users[u.ID] = &account{user: u, role: role, hash: hash}
	return u
}

// AddTask stores task under a fresh id and returns the stored copy.
func (s *Server) AddTask(task api.Task) api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = s.nextTaskID
	s.nextTaskID++
	task.AssignedUserName = s.userNameLocked(task.AssignedUserID)
	s.tasks[task.ID] = task
	return task
}

// IssueToken mints a signed token for u that expires after ttl. A zero
// ttl leaves out the exp claim.
func (s *Server) IssueToken(u api.User, ttl time.Duration) string {
	claims := jwt.MapClaims{
		identity.ClaimNameIdentifier: strconv.Itoa(u.ID),
		identity.ClaimName:           u.Name,
		identity.ClaimEmail:          u.Email,
		identity.ClaimRole:           u.Role,
	}
	if ttl != 0 {
		claims[identity.ClaimExpiry] = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// SetTokenTTL changes the lifetime of tokens issued by the login route.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// SetDown makes every route answer 503 while down is true.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Users returns the accounts ordered by id.
func (s *Server) Users() []api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usersLocked()
}

// User returns the account with the given id.
func (s *Server) User(id int) (api.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.users[id]
	if !ok {
		return api.User{}, false
	}
	return a.user, true
}

// Tasks returns the tasks ordered by id.
func (s *Server) Tasks() []api.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksLocked()
}

// Task returns the task with the given id.
func (s *Server) Task(id int) (api.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

// CheckPassword reports whether password matches the stored hash of the
// account with the given id.
func (s *Server) CheckPassword(id int, password string) bool {
	s.mu.Lock()
	a, ok := s.users[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// LastRequest returns a clone of the most recent request's headers, its
// method and its path.
func (s *Server) LastRequest() (method, path string, header http.Header) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return "", "", nil
	}
	return s.last.Method, s.last.URL.Path, s.last.Header.Clone()
}

// Requests counts the requests received so far.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.last = r.Clone(r.Context())
		s.requests++
		down := s.down
		s.mu.Unlock()

		if down {
			writeMessage(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type caller struct {
	id   int
	role identity.Role
}

type authedHandler func(w http.ResponseWriter, r *http.Request, c caller)

// require authenticates the bearer token and, when roles is not empty,
// restricts the route to those roles.
func (s *Server) require(h authedHandler, roles ...identity.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get(common.AuthorizationHeaderName), "Bearer ")
		if !ok || raw == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		sub, _ := claims[identity.ClaimNameIdentifier].(string)
		id, err := strconv.Atoi(sub)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		roleName, _ := claims[identity.ClaimRole].(string)
		c := caller{id: id, role: identity.ParseRole(roleName)}

		if len(roles) > 0 && !hasRole(roles, c.role) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		h(w, r, c)
	}
}

func hasRole(roles []identity.Role, r identity.Role) bool {
	for _, want := range roles {
		if want == r {
			return true
		}
	}
	return false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	var found *account
	for _, a := range s.users {
		if strings.EqualFold(a.user.Email, req.Email) {
			found = a
			break
		}
	}
	ttl := s.tokenTTL
	s.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(found.hash, []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": s.IssueToken(found.user, ttl)})
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, _ caller) {
	writeJSON(w, http.StatusOK, s.Users())
}

func (s *Server) handleCountUsers(w http.ResponseWriter, _ *http.Request, _ caller) {
	s.mu.Lock()
	n := len(s.users)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) decodeUser(w http.ResponseWriter, r *http.Request, requirePassword bool) (api.UserInput, identity.Role, bool) {
	var in api.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, "invalid request body")
		return in, identity.RoleUnknown, false
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || (requirePassword && in.Password == "") {
		writeProblem(w, "One or more validation errors occurred.")
		return in, identity.RoleUnknown, false
	}
	role, ok := identity.RoleFromCode(in.Role)
	if !ok {
		writeProblem(w, fmt.Sprintf("unknown role %d", in.Role))
		return in, identity.RoleUnknown, false
	}
	return in, role, true
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, _ caller) {
	in, role, ok := s.decodeUser(w, r, true)
	if !ok {
		return
	}

	s.mu.Lock()
	taken := s.emailTakenLocked(in.Email, 0)
	s.mu.Unlock()
	if taken {
		writeMessage(w, http.StatusBadRequest, "Email already exists.")
		return
	}

	u := s.AddUser(in.Name, in.Email, in.Password, role)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, _ caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	in, role, ok := s.decodeUser(w, r, false)
	if !ok {
		return
	}

	var hash []byte
	if in.Password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost); err != nil {
			writeMessage(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.users[id]
	if !found {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}
	if s.emailTakenLocked(in.Email, id) {
		writeMessage(w, http.StatusBadRequest, "Email already exists.")
		return
	}

	a.user.Name, a.user.Email, a.user.Role = in.Name, in.Email, role.String()
	a.role = role
	if hash != nil {
		a.hash = hash
	}
	for tid, t := range s.tasks {
		if t.AssignedUserID == id {
			t.AssignedUserName = in.Name
			s.tasks[tid] = t
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, _ caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.users[id]; !found {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}
	delete(s.users, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request, _ caller) {
	writeJSON(w, http.StatusOK, s.Tasks())
}

func (s *Server) handleCountTasks(w http.ResponseWriter, _ *http.Request, _ caller) {
	s.mu.Lock()
	n := len(s.tasks)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) decodeTask(w http.ResponseWriter, r *http.Request) (api.TaskInput, bool) {
	var in api.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, "invalid request body")
		return in, false
	}
	if strings.TrimSpace(in.Title) == "" {
		writeProblem(w, "One or more validation errors occurred.")
		return in, false
	}
	if _, err := time.Parse(time.DateOnly, in.DueDate); err != nil {
		writeProblem(w, "The dueDate field is invalid.")
		return in, false
	}

	s.mu.Lock()
	_, assignee := s.users[in.AssignedUserID]
	s.mu.Unlock()
	if !assignee {
		writeMessage(w, http.StatusBadRequest, "Assigned user does not exist.")
		return in, false
	}
	return in, true
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, _ caller) {
	in, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	t := s.AddTask(api.Task{
		Title:          in.Title,
		Description:    in.Description,
		DueDate:        in.DueDate + "T00:00:00",
		Status:         in.Status,
		AssignedUserID: in.AssignedUserID,
	})
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, _ caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	in, ok := s.decodeTask(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.tasks[id]
	if !found {
		writeMessage(w, http.StatusNotFound, "Task not found.")
		return
	}
	t.Title, t.Description, t.DueDate = in.Title, in.Description, in.DueDate+"T00:00:00"
	t.Status, t.AssignedUserID = in.Status, in.AssignedUserID
	t.AssignedUserName = s.userNameLocked(in.AssignedUserID)
	s.tasks[id] = t
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, _ caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, found := s.tasks[id]; !found {
		writeMessage(w, http.StatusNotFound, "Task not found.")
		return
	}
	delete(s.tasks, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, _ caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.tasks[id]
	if !found {
		writeMessage(w, http.StatusNotFound, "Task not found.")
		return
	}
	if _, found := s.users[userID]; !found {
		writeMessage(w, http.StatusNotFound, "User not found.")
		return
	}
	t.AssignedUserID = userID
	t.AssignedUserName = s.userNameLocked(userID)
	s.tasks[id] = t
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request, c caller) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Status api.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.tasks[id]
	if !found {
		writeMessage(w, http.StatusNotFound, "Task not found.")
		return
	}
	if c.role != identity.RoleAdmin && c.role != identity.RoleSupervisor && t.AssignedUserID != c.id {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	t.Status = req.Status
	s.tasks[id] = t
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) usersLocked() []api.User {
	out := make([]api.User, 0, len(s.users))
	for _, a := range s.users {
		out = append(out, a.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) tasksLocked() []api.Task {
	out := make([]api.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) userNameLocked(id int) string {
	if a, ok := s.users[id]; ok {
		return a.user.Name
	}
	return ""
}

func (s *Server) emailTakenLocked(email string, except int) bool {
	for id, a := range s.users {
		if id != except && strings.EqualFold(a.user.Email, email) {
			return true
		}
	}
	return false
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		writeProblem(w, fmt.Sprintf("The value '%s' is not valid.", r.PathValue(name)))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"message": msg})
}

// writeProblem answers 400 with an ASP.NET-style problem document.
func writeProblem(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"title": title, "status": http.StatusBadRequest})
}
