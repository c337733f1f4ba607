// README: Bench cases covering the match -> trip -> settlement flow over HTTP, with DB/Redis consistency and race checks.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"charterhub/internal/infra"
)

const (
	statusPass    = "PASS"
	statusFail    = "FAIL"
	statusPending = "PENDING"
	statusSkip    = "SKIP"
)

// Scenario coordinates around Buenos Aires; the charter sits on the pickup point.
var (
	pickup      = [2]float64{-34.77, -58.39}
	destination = [2]float64{-34.92, -57.95}
)

const requesterCredits = 1000

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
	flow  *flowState
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

// flowState carries ids and tokens between the ordered flow cases.
type flowState struct {
	userID       string
	charterID    string
	userToken    string
	charterToken string
	matchID      string
	tripID       string
	price        int64
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
		flow:  &flowState{},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "Redis reachable when the API runs with a GEO index",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Migration: apply (optional)",
			Focus: "Apply every migrations/*.sql in order",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				files, err := migrationFiles(r.cfg.MigrationDir)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, f := range files {
					sql, err := os.ReadFile(f)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					for _, s := range splitSQL(string(sql)) {
						if _, err := r.db.Exec(ctx, s); err != nil {
							return Result{Status: statusFail, Note: filepath.Base(f) + ": " + err.Error()}
						}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("files=%d", len(files))}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "Every CREATE TABLE in the migrations is present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationDir)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("tables=%d", len(tables))}
			},
		},
		{
			Name:  "API: health",
			Focus: "API answers /health",
			Run: func(ctx context.Context, r *Runner) Result {
				code, _, latency, err := r.call(ctx, http.MethodGet, "/health", "", nil)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return expectStatus(code, latency, http.StatusOK)
			},
		},
		{
			Name:  "Auth: missing token -> 401",
			Focus: "API routes require a bearer token",
			Run: func(ctx context.Context, r *Runner) Result {
				code, _, latency, err := r.call(ctx, http.MethodGet, "/api/matches", "", nil)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return expectStatus(code, latency, http.StatusUnauthorized)
			},
		},

		// Flow
		{
			Name:  "Seed: requester and charter",
			Focus: "Insert a funded requester and a verified charter",
			Run:   seedFlow,
		},
		{
			Name:  "Auth: requester on charter route -> 403",
			Focus: "Role gate on /api/charter",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.flow.userToken == "" {
					return Result{Status: statusSkip, Note: "no tokens"}
				}
				code, _, latency, err := r.call(ctx, http.MethodGet, "/api/charter/matches", r.flow.userToken, nil)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return expectStatus(code, latency, http.StatusForbidden)
			},
		},
		flowCase("Charter: set origin", http.MethodPut, "/api/charter/origin", charterToken, func(f *flowState) any {
			return map[string]any{"address": "Bench depot", "lat": pickup[0], "lng": pickup[1]}
		}, http.StatusOK, nil),
		flowCase("Charter: go available", http.MethodPut, "/api/charter/availability", charterToken, func(f *flowState) any {
			return map[string]any{"is_available": true}
		}, http.StatusOK, nil),
		{
			Name:  "Redis: charter in GEO index",
			Focus: "Availability toggle reaches the GEO key",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil || r.flow.charterID == "" {
					return Result{Status: statusSkip, Note: "redis or charter not configured"}
				}
				pos, err := r.redis.GeoPos(ctx, r.cfg.GeoKey, r.flow.charterID).Result()
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if len(pos) == 0 || pos[0] == nil {
					return Result{Status: statusFail, Note: "charter missing from " + r.cfg.GeoKey}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("lat=%.4f lng=%.4f", pos[0].Latitude, pos[0].Longitude)}
			},
		},
		flowCase("Match: invalid coordinates -> 400", http.MethodPost, "/api/matches", userToken, func(f *flowState) any {
			return map[string]any{
				"pickup_lat": 123.0, "pickup_lng": 456.0,
				"destination_lat": destination[0], "destination_lng": destination[1],
			}
		}, http.StatusBadRequest, nil),
		flowCase("Match: create", http.MethodPost, "/api/matches", userToken, func(f *flowState) any {
			return matchBody()
		}, http.StatusCreated, func(f *flowState, data json.RawMessage) string {
			var out struct {
				Match struct {
					ID string `json:"id"`
				} `json:"match"`
				Candidates []struct {
					CharterID string `json:"charter_id"`
				} `json:"candidates"`
			}
			if err := json.Unmarshal(data, &out); err != nil {
				return err.Error()
			}
			f.matchID = out.Match.ID
			for _, c := range out.Candidates {
				if c.CharterID == f.charterID {
					return ""
				}
			}
			return fmt.Sprintf("seeded charter not among %d candidates", len(out.Candidates))
		}),
		flowCase("Match: select charter", http.MethodPut, "/api/matches/{match}/select-charter", userToken, func(f *flowState) any {
			return map[string]any{"charter_id": f.charterID}
		}, http.StatusOK, func(f *flowState, data json.RawMessage) string {
			var m struct {
				Status           string `json:"status"`
				EstimatedCredits *int64 `json:"estimated_credits"`
			}
			if err := json.Unmarshal(data, &m); err != nil {
				return err.Error()
			}
			if m.Status != "pending" || m.EstimatedCredits == nil {
				return "unexpected match: status=" + m.Status
			}
			f.price = *m.EstimatedCredits
			return ""
		}),
		flowCase("Match: charter accepts", http.MethodPut, "/api/charter/matches/{match}/respond", charterToken, func(f *flowState) any {
			return map[string]any{"accept": true}
		}, http.StatusOK, nil),
		{
			Name:  "Concurrency: multi create-trip same match",
			Focus: "Only one trip and one debit per match",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.flow.matchID == "" {
					return Result{Status: statusSkip, Note: "no match"}
				}
				path := "/api/matches/" + r.flow.matchID + "/create-trip"
				codes, bodies := r.race(ctx, http.MethodPost, path, r.flow.userToken, nil)
				created := 0
				for i, code := range codes {
					if code != http.StatusCreated {
						continue
					}
					created++
					var t struct {
						ID string `json:"id"`
					}
					if err := json.Unmarshal(bodies[i].Data, &t); err == nil {
						r.flow.tripID = t.ID
					}
				}
				if created != 1 {
					return Result{Status: statusFail, Note: fmt.Sprintf("created=%d codes=%v", created, codes)}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("attempts=%d", len(codes))}
			},
		},
		{
			Name:  "Consistency: requester debited once",
			Focus: "credits = funded - estimated price",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expectCredits(ctx, r.flow.userID, requesterCredits-r.flow.price)
			},
		},
		flowCase("Trip: charter completes", http.MethodPut, "/api/trips/{trip}/charter-complete", charterToken, nil, http.StatusOK, nil),
		flowCase("Trip: requester confirms", http.MethodPut, "/api/trips/{trip}/client-confirm", userToken, nil, http.StatusOK, nil),
		flowCase("Trip: confirm twice -> 400", http.MethodPut, "/api/trips/{trip}/client-confirm", userToken, nil, http.StatusBadRequest, nil),
		{
			Name:  "Consistency: charter paid once",
			Focus: "charter credits = estimated price",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expectCredits(ctx, r.flow.charterID, r.flow.price)
			},
		},
		flowCase("Trip: can leave feedback", http.MethodGet, "/api/trips/{trip}/can-feedback", userToken, nil, http.StatusOK, func(f *flowState, data json.RawMessage) string {
			var out struct {
				CanLeaveFeedback bool `json:"can_leave_feedback"`
			}
			if err := json.Unmarshal(data, &out); err != nil {
				return err.Error()
			}
			if !out.CanLeaveFeedback {
				return "expected can_leave_feedback=true"
			}
			return ""
		}),
		{
			Name:  "Consistency: match events recorded",
			Focus: "searching, pending, accepted and completed each leave an event",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil || r.flow.matchID == "" {
					return Result{Status: statusSkip, Note: "no match"}
				}
				var n int
				if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM match_state_events WHERE match_id=$1", r.flow.matchID).Scan(&n); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				if n != 4 {
					return Result{Status: statusFail, Note: fmt.Sprintf("events=%d", n)}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name:  "Concurrency: racing answers on one match",
			Focus: "Only one accept/reject wins",
			Run:   raceRespond,
		},

		manualCase("Expiry: searching match expires", "lower CHUB_MATCH_TTL and watch the sweeper"),
		manualCase("Error: DB down -> 500", "stop Postgres and observe responses"),
		manualCase("Error: Redis down -> DB fallback", "stop Redis and confirm matches still rank charters"),

		// Performance
		{
			Name:  "Perf: list matches throughput",
			Focus: "Authenticated read path under load",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.flow.userToken == "" {
					return Result{Status: statusSkip, Note: "no tokens"}
				}
				return perfLoad(ctx, r, http.MethodGet, "/api/matches", r.flow.userToken)
			},
		},
	}
}

func seedFlow(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	if r.cfg.JWTSecret == "" {
		return Result{Status: statusSkip, Note: "CHUB_JWT_SECRET not set; flow cases skipped"}
	}
	suffix := uuid.NewString()[:8]
	f := r.flow
	userID := "bench-user-" + suffix
	charterID := "bench-charter-" + suffix

	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, name, email, role, verification_status, credits)
		VALUES ($1, 'Bench Requester', $2, 'user', 'verified', $3),
		       ($4, 'Bench Charter', $5, 'charter', 'verified', 0)`,
		userID, userID+"@bench.charterhub.test", requesterCredits,
		charterID, charterID+"@bench.charterhub.test")
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	userTok, err := infra.SignToken(r.cfg.JWTSecret, userID, "user", time.Hour)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	charterTok, err := infra.SignToken(r.cfg.JWTSecret, charterID, "charter", time.Hour)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	f.userID, f.charterID = userID, charterID
	f.userToken, f.charterToken = userTok, charterTok
	return Result{Status: statusPass, Note: "suffix=" + suffix}
}

// raceRespond opens a second match against the same charter and fires
// concurrent accept/reject answers at it.
func raceRespond(ctx context.Context, r *Runner) Result {
	f := r.flow
	if f.userToken == "" {
		return Result{Status: statusSkip, Note: "no tokens"}
	}
	code, env, _, err := r.call(ctx, http.MethodPost, "/api/matches", f.userToken, matchBody())
	if err != nil || code != http.StatusCreated {
		return Result{Status: statusFail, Note: fmt.Sprintf("create status=%d err=%v", code, err)}
	}
	var created struct {
		Match struct {
			ID string `json:"id"`
		} `json:"match"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	id := created.Match.ID
	code, _, _, err = r.call(ctx, http.MethodPut, "/api/matches/"+id+"/select-charter", f.userToken, map[string]any{"charter_id": f.charterID})
	if err != nil || code != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("select status=%d err=%v", code, err)}
	}

	var mu sync.Mutex
	wins := 0
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			code, _, _, err := r.call(ctx, http.MethodPut, "/api/charter/matches/"+id+"/respond", f.charterToken, map[string]any{"accept": accept})
			if err != nil {
				return
			}
			if code == http.StatusOK {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i%2 == 0)
	}
	wg.Wait()

	// An accepted match would otherwise stay open for the requester.
	_, _, _, _ = r.call(ctx, http.MethodPut, "/api/matches/"+id+"/cancel", f.userToken, nil)

	if wins != 1 {
		return Result{Status: statusFail, Note: fmt.Sprintf("wins=%d", wins)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("attempts=%d", r.cfg.Concurrency)}
}

func (r *Runner) expectCredits(ctx context.Context, userID string, want int64) Result {
	if r.db == nil || userID == "" {
		return Result{Status: statusSkip, Note: "no seeded user"}
	}
	var got int64
	if err := r.db.QueryRow(ctx, "SELECT credits FROM users WHERE id=$1", userID).Scan(&got); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if got != want {
		return Result{Status: statusFail, Note: fmt.Sprintf("credits=%d want=%d", got, want)}
	}
	return Result{Status: statusPass, Note: fmt.Sprintf("credits=%d", got)}
}

func matchBody() map[string]any {
	return map[string]any{
		"pickup_address":      "Bench pickup",
		"pickup_lat":          pickup[0],
		"pickup_lng":          pickup[1],
		"destination_address": "Bench destination",
		"destination_lat":     destination[0],
		"destination_lng":     destination[1],
		"max_radius_km":       5,
		"workers_count":       2,
	}
}

func userToken(f *flowState) string    { return f.userToken }
func charterToken(f *flowState) string { return f.charterToken }

// flowCase issues one request of the happy path. {match} and {trip} in path
// are filled from the flow state; check inspects the envelope data on success.
func flowCase(
	name, method, path string,
	token func(*flowState) string,
	body func(*flowState) any,
	want int,
	check func(*flowState, json.RawMessage) string,
) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			f := r.flow
			if token(f) == "" {
				return Result{Status: statusSkip, Note: "no tokens"}
			}
			if (strings.Contains(path, "{match}") && f.matchID == "") || (strings.Contains(path, "{trip}") && f.tripID == "") {
				return Result{Status: statusSkip, Note: "earlier flow step failed"}
			}
			p := strings.NewReplacer("{match}", f.matchID, "{trip}", f.tripID).Replace(path)
			var payload any
			if body != nil {
				payload = body(f)
			}
			code, env, latency, err := r.call(ctx, method, p, token(f), payload)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			res := expectStatus(code, latency, want)
			if res.Status != statusPass {
				if env.Error != nil {
					res.Note += " " + env.Error.Kind + ": " + env.Error.Message
				}
				return res
			}
			if check != nil {
				if msg := check(f, env.Data); msg != "" {
					return Result{Status: statusFail, Latency: latency, Note: msg}
				}
			}
			return res
		},
	}
}

func manualCase(name, note string) TestCase {
	return TestCase{
		Name:  name,
		Focus: "Manual",
		Run: func(ctx context.Context, r *Runner) Result {
			return Result{Status: statusSkip, Note: note}
		},
	}
}

func (r *Runner) call(ctx context.Context, method, path, token string, body any) (int, envelope, time.Duration, error) {
	var env envelope
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, env, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, env, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, env, 0, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	latency := time.Since(start)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, latency, nil
}

// race fires cfg.Concurrency identical requests at once and returns every
// status code with its envelope.
func (r *Runner) race(ctx context.Context, method, path, token string, body any) ([]int, []envelope) {
	n := r.cfg.Concurrency
	codes := make([]int, n)
	bodies := make([]envelope, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, env, _, err := r.call(ctx, method, path, token, body)
			if err != nil {
				return
			}
			codes[i], bodies[i] = code, env
		}(i)
	}
	wg.Wait()
	return codes, bodies
}

func perfLoad(ctx context.Context, r *Runner, method, path, token string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, _, err := r.call(ctx, method, path, token, nil)
				mu.Lock()
				if err != nil || code >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func expectStatus(code int, latency time.Duration, want int) Result {
	note := fmt.Sprintf("status=%d", code)
	if code == http.StatusNotImplemented {
		return Result{Status: statusPending, Latency: latency, Note: note}
	}
	if code != want {
		return Result{Status: statusFail, Latency: latency, Note: fmt.Sprintf("%s want=%d", note, want)}
	}
	return Result{Status: statusPass, Latency: latency, Note: note}
}

func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

var createTableRE = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(dir string) ([]string, error) {
	files, err := migrationFiles(dir)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRE.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	cleaned := strings.Join(filtered, "\n")
	parts := strings.Split(cleaned, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
