// Package notify keeps the per-service subscriber sets that get mentioned when
// an entry for that service is announced. The registry is mirrored to a single
// file after every mutation.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// All addresses every configured service at once.
const All = "all"

// ErrNoSuchService is returned for a service that is neither configured nor "all".
var ErrNoSuchService = errors.New("no such service")

// Registry maps lower-cased service names to subscriber sets.
type Registry struct {
	mu       sync.Mutex
	path     string
	services []string
	subs     map[string]map[string]struct{}
}

// Open loads the registry from path, or starts with an empty set per service
// when the file does not exist yet. Services present in the file but not
// configured are dropped.
func Open(path string, services []string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("notify file path is empty")
	}

	r := &Registry{
		path: path,
		subs: make(map[string]map[string]struct{}, len(services)),
	}
	for _, svc := range services {
		key := normalize(svc)
		if key == "" {
			continue
		}
		if _, ok := r.subs[key]; ok {
			continue
		}
		r.services = append(r.services, key)
		r.subs[key] = map[string]struct{}{}
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("read notify file: %w", err)
	}

	stored, err := decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	for svc, names := range stored {
		set, ok := r.subs[normalize(svc)]
		if !ok {
			continue
		}
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	return r, nil
}

// Subscribe adds who to one service or, with "all", to every service, then
// rewrites the file.
func (r *Registry) Subscribe(service, who string) error {
	return r.mutate(service, func(set map[string]struct{}) { set[who] = struct{}{} })
}

// Unsubscribe removes who from one service or every service, then rewrites the file.
func (r *Registry) Unsubscribe(service, who string) error {
	return r.mutate(service, func(set map[string]struct{}) { delete(set, who) })
}

// mutate applies fn to copies of the target sets and persists the result.
// The in-memory registry changes only after the file was written.
func (r *Registry) mutate(service string, fn func(map[string]struct{})) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, err := r.resolve(service)
	if err != nil {
		return err
	}
	next := make(map[string]map[string]struct{}, len(r.subs))
	for svc, set := range r.subs {
		next[svc] = set
	}
	for _, svc := range targets {
		set := make(map[string]struct{}, len(r.subs[svc])+1)
		for n := range r.subs[svc] {
			set[n] = struct{}{}
		}
		fn(set)
		next[svc] = set
	}
	if err := r.persist(next); err != nil {
		return err
	}
	r.subs = next
	return nil
}

// Subscribers returns the sorted subscriber names of one service.
func (r *Registry) Subscribers(service string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedNames(r.subs[normalize(service)])
}

// List renders "<service>: a, b" for one service, or one such line per
// service for "all".
func (r *Registry) List(service string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets, err := r.resolve(service)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(targets))
	for _, svc := range targets {
		names := sortedNames(r.subs[svc])
		members := "(none)"
		if len(names) > 0 {
			members = strings.Join(names, ", ")
		}
		lines = append(lines, svc+": "+members)
	}
	return lines, nil
}

func (r *Registry) resolve(service string) ([]string, error) {
	key := normalize(service)
	if key == All {
		return append([]string(nil), r.services...), nil
	}
	if _, ok := r.subs[key]; !ok {
		return nil, fmt.Errorf("%w %q", ErrNoSuchService, service)
	}
	return []string{key}, nil
}

// persist rewrites the whole file from subs through a temp file and rename.
// Callers hold r.mu.
func (r *Registry) persist(subs map[string]map[string]struct{}) error {
	snapshot := make(map[string][]string, len(subs))
	for svc, set := range subs {
		snapshot[svc] = sortedNames(set)
	}

	raw, err := encode(snapshot, filepath.Ext(r.path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".notify-*")
	if err != nil {
		return fmt.Errorf("create notify temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write notify file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close notify file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace notify file: %w", err)
	}
	return nil
}

func decode(raw []byte, ext string) (map[string][]string, error) {
	out := map[string][]string{}
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &out)
	default:
		err = json.Unmarshal(raw, &out)
	}
	if err != nil {
		return nil, fmt.Errorf("decode notify file: %w", err)
	}
	return out, nil
}

func encode(snapshot map[string][]string, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		raw, err := yaml.Marshal(snapshot)
		if err != nil {
			return nil, fmt.Errorf("encode notify file: %w", err)
		}
		return raw, nil
	default:
		raw, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode notify file: %w", err)
		}
		return raw, nil
	}
}

func normalize(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
