package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/coursemaster/coursegate/admintoken"
	"github.com/coursemaster/coursegate/credential"
	"github.com/coursemaster/coursegate/gate"
)

type profileState struct {
	name  string
	store *credential.Store
	mu    sync.Mutex
}

func main() {
	var (
		profiles    = flag.Int("profiles", 10000, "number of visitor profiles to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (check + elevate)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, COURSEGATE_REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "cg-load", "credential key prefix")
	)
	flag.Parse()

	if *profiles <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "profiles, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("COURSEGATE_REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	decoder, err := admintoken.NewDecoder(admintoken.FormatLocal, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decoder: %v\n", err)
		os.Exit(1)
	}
	g, err := gate.New(gate.DefaultConfig(), decoder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gate: %v\n", err)
		os.Exit(1)
	}
	provider := credential.NewRedisProvider(client, *prefix, time.Hour)

	states := make([]profileState, *profiles)
	fmt.Printf("seeding %d profiles...\n", *profiles)
	startSeed := time.Now()
	for i := 0; i < *profiles; i++ {
		name := fmt.Sprintf("p-%d", i)
		store, err := provider.Store(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "profile failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = profileState{name: name, store: store}
		if err := seed(ctx, store, i); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	checkStats := runCheckPhase(ctx, g, states, *ops, *concurrency)
	elevateStats := runElevatePhase(ctx, g, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("check", checkStats)
	printStats("elevate", elevateStats)
}

// seed stores an admin login in every profile and an admin token in every other one.
func seed(ctx context.Context, store *credential.Store, i int) error {
	user := adminUser(i)
	if err := store.Set(ctx, credential.SlotPrimary, credential.Credential{Token: "tok-" + user.ID, User: &user}); err != nil {
		return err
	}
	if i%2 != 0 {
		return nil
	}
	token, err := adminToken(user)
	if err != nil {
		return err
	}
	return store.Set(ctx, credential.SlotAdmin, credential.Credential{Token: token})
}

func runCheckPhase(ctx context.Context, g *gate.Gate, states []profileState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				t0 := time.Now()
				_, err := g.Check(ctx, states[idx].store, gate.Request{Path: "/admin/courses"})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runElevatePhase stores a fresh admin token and checks the admin home with it. A check that
// does not allow counts as a failure.
func runElevatePhase(ctx context.Context, g *gate.Gate, states []profileState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(states))
				state := &states[idx]

				state.mu.Lock()
				t0 := time.Now()
				ok := elevate(ctx, g, state.store, idx)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				state.mu.Unlock()

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func elevate(ctx context.Context, g *gate.Gate, store *credential.Store, i int) bool {
	token, err := adminToken(adminUser(i))
	if err != nil {
		return false
	}
	if err := store.Set(ctx, credential.SlotAdmin, credential.Credential{Token: token}); err != nil {
		return false
	}
	res, err := g.Check(ctx, store, gate.Request{Path: "/admin"})
	return err == nil && res.Decision == gate.Allow
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func adminUser(i int) credential.User {
	return credential.User{
		ID:    fmt.Sprintf("u-%d", i),
		Email: fmt.Sprintf("admin-%d@example.com", i),
		Role:  credential.RoleAdmin,
	}
}

func adminToken(u credential.User) (string, error) {
	return admintoken.Encode(admintoken.NewPayload(u.ID, u.Email, string(u.Role), time.Now().Add(time.Hour)))
}
