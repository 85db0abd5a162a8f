package volume

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nace/vcmounter/internal/config"
	"github.com/nace/vcmounter/internal/engine"
	"github.com/nace/vcmounter/internal/system"
	"github.com/nace/vcmounter/internal/ui"
	"github.com/stretchr/testify/require"
)

const (
	goodPassword = "correct horse battery staple"
	goodPIM      = "485"
)

// world is the simulated host shared by every fake. Events from all fakes
// land in one ordered log.
type world struct {
	password string
	pim      string

	exists  map[string]bool   // links and virtual devices
	mapped  map[string]string // link -> virtual device
	mounted map[string]bool   // mount point -> mounted
	mpOf    map[string]string // link -> mount point

	busy      map[string]bool // mount point held open until holders are killed
	stuck     map[string]bool // link that never unmaps
	loopback  map[string]bool // link maps to a loop device
	staleNode map[string]bool // virtual device the kernel no longer knows

	exportsActive bool
	services      map[string]bool
	fsckErr       error
	mountErr      error
	scriptErr     error

	nextSlot int
	events   []string
	maps     []engine.MapRequest
}

func newWorld() *world {
	return &world{
		password:  goodPassword,
		pim:       goodPIM,
		exists:    map[string]bool{},
		mapped:    map[string]string{},
		mounted:   map[string]bool{},
		mpOf:      map[string]string{},
		busy:      map[string]bool{},
		stuck:     map[string]bool{},
		loopback:  map[string]bool{},
		staleNode: map[string]bool{},
		services:  map[string]bool{},
	}
}

func (w *world) event(format string, args ...interface{}) {
	w.events = append(w.events, fmt.Sprintf(format, args...))
}

// eventsWith returns the events starting with one of prefixes, in order
func (w *world) eventsWith(prefixes ...string) []string {
	var out []string
	for _, e := range w.events {
		for _, p := range prefixes {
			if strings.HasPrefix(e, p) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (w *world) count(prefix string) int {
	return len(w.eventsWith(prefix))
}

func (w *world) unmap(link string) {
	vd := w.mapped[link]
	delete(w.mapped, link)
	delete(w.exists, vd)
	w.mounted[w.mpOf[link]] = false
}

// fakeEngine simulates the encryption engine
type fakeEngine struct{ w *world }

func (e *fakeEngine) Map(req engine.MapRequest) error {
	w := e.w
	w.event("map %s", filepath.Base(req.Device))
	saved := req
	saved.Password, saved.PIM = nil, nil
	w.maps = append(w.maps, saved)

	if string(req.Password) != w.password || string(req.PIM) != w.pim {
		return errors.New("Incorrect password or not a VeraCrypt volume")
	}
	w.nextSlot++
	vd := fmt.Sprintf("/dev/mapper/veracrypt%d", w.nextSlot)
	if w.loopback[req.Device] {
		vd = fmt.Sprintf("/dev/loop%d", w.nextSlot)
	}
	w.mapped[req.Device] = vd
	w.exists[vd] = true
	return nil
}

func (e *fakeEngine) Properties(device string) (engine.Properties, error) {
	vd, ok := e.w.mapped[device]
	if !ok {
		return engine.Properties{}, engine.ErrNotMapped
	}
	return engine.Properties{Volume: device, VirtualDevice: vd, MountDir: e.w.mpOf[device]}, nil
}

func (e *fakeEngine) Dismount(device string, force bool) error {
	w := e.w
	if force {
		w.event("dismount --force %s", filepath.Base(device))
	} else {
		w.event("dismount %s", filepath.Base(device))
	}
	if _, ok := w.mapped[device]; !ok {
		return errors.New("No such volume is mounted")
	}
	if w.stuck[device] {
		return errors.New("device busy")
	}
	mp := w.mpOf[device]
	if !force && w.mounted[mp] && w.busy[mp] {
		return errors.New("device busy")
	}
	w.unmap(device)
	return nil
}

func (e *fakeEngine) DismountAll(force bool) error {
	e.w.event("dismount-all")
	var failed []string
	for link := range e.w.mapped {
		mp := e.w.mpOf[link]
		if e.w.stuck[link] || (e.w.mounted[mp] && e.w.busy[mp]) {
			failed = append(failed, link)
			continue
		}
		e.w.unmap(link)
	}
	if len(failed) > 0 {
		return fmt.Errorf("busy: %v", failed)
	}
	return nil
}

func (e *fakeEngine) List() (string, error) {
	e.w.event("list")
	var lines []string
	for link, vd := range e.w.mapped {
		lines = append(lines, link+" "+vd)
	}
	return strings.Join(lines, "\n"), nil
}

// fakeMounter simulates mount(8) and the mount table
type fakeMounter struct{ w *world }

func (m *fakeMounter) Mount(device, mountPoint string, options []string) error {
	m.w.event("mount %s %s", filepath.Base(mountPoint), strings.Join(options, ","))
	if m.w.mountErr != nil {
		return m.w.mountErr
	}
	m.w.mounted[mountPoint] = true
	return nil
}

func (m *fakeMounter) RemountReadOnly(device string) error {
	m.w.event("remount-ro %s", device)
	return nil
}

func (m *fakeMounter) IsMounted(path string) bool {
	return m.w.mounted[path]
}

// fakeTeardown records the escalation steps
type fakeTeardown struct{ w *world }

func (t *fakeTeardown) SwapOffUnder(mp string) error {
	t.w.event("swapoff %s", filepath.Base(mp))
	return nil
}

func (t *fakeTeardown) ExportsActive() bool { return t.w.exportsActive }

func (t *fakeTeardown) UnexportAll() error {
	t.w.event("unexport")
	t.w.exportsActive = false
	return nil
}

func (t *fakeTeardown) Reexport() error {
	t.w.event("reexport")
	t.w.exportsActive = true
	return nil
}

func (t *fakeTeardown) ServiceActive(unit string) bool { return t.w.services[unit] }

func (t *fakeTeardown) StopService(unit string) error {
	t.w.event("stop %s", unit)
	t.w.services[unit] = false
	return nil
}

func (t *fakeTeardown) StartService(unit string) error {
	t.w.event("start %s", unit)
	t.w.services[unit] = true
	return nil
}

func (t *fakeTeardown) KillHolders(mp string) error {
	t.w.event("kill %s", filepath.Base(mp))
	t.w.busy[mp] = false
	return nil
}

func (t *fakeTeardown) DetachLoop(device string) error {
	t.w.event("detach %s", device)
	for link, vd := range t.w.mapped {
		if vd == device {
			t.w.unmap(link)
		}
	}
	return nil
}

type fakeChecker struct{ w *world }

func (c *fakeChecker) Check(devices []string) error {
	c.w.event("fsck %s", strings.Join(devices, " "))
	return c.w.fsckErr
}

type fakeDisks struct{ w *world }

func (d *fakeDisks) Sync() { d.w.event("sync") }

func (d *fakeDisks) SpinDown(device string) error {
	d.w.event("spindown %s", device)
	return nil
}

type fakeScripts struct {
	w   *world
	env [][]string
}

func (s *fakeScripts) Run(path string, env []string) error {
	s.w.event("script %s", filepath.Base(path))
	s.env = append(s.env, env)
	return s.w.scriptErr
}

type fakePower struct{ w *world }

func (p *fakePower) Shutdown() error { p.w.event("shutdown"); return nil }
func (p *fakePower) Reboot() error   { p.w.event("reboot"); return nil }

type fakeMapper struct{ w *world }

func (m *fakeMapper) Exists(device string) bool {
	return m.w.exists[device] && !m.w.staleNode[device]
}

// fakePrompter replays scripted replies, then answers "quit" so a broken
// loop cannot spin forever
type fakePrompter struct {
	replies []string
	prompts []string
	pauses  int
	err     error
}

func (p *fakePrompter) Ask(prompt string) ([]byte, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.replies) == 0 {
		return []byte("quit"), nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return []byte(r), nil
}

func (p *fakePrompter) Pause(message string) error {
	p.pauses++
	return nil
}

type fakeGovernor struct {
	calls []string
}

func (g *fakeGovernor) SetMax() error  { g.calls = append(g.calls, "max"); return nil }
func (g *fakeGovernor) Restore() error { g.calls = append(g.calls, "restore"); return nil }

// harness wires an orchestrator to a fresh world
type harness struct {
	w        *world
	o        *Orchestrator
	creds    *Credentials
	prompter *fakePrompter
	scripts  *fakeScripts
	probe    *Probe
	targets  []Target
	out      *bytes.Buffer
	logs     *bytes.Buffer
	sleeps   []time.Duration
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	w := newWorld()
	root := t.TempDir()

	var targets []Target
	for i, name := range names {
		mp := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(mp, 0755))
		link := "/run/shm/vc-mounter/usb-" + name
		w.exists[link] = true
		w.mpOf[link] = mp
		targets = append(targets, Target{
			Volume: config.Volume{Name: name, Device: "usb-" + name, MountPoint: mp},
			Device: ResolvedDevice{
				VolumeName:     name,
				RawDevicePath:  fmt.Sprintf("/dev/sd%c1", 'b'+i),
				CachedLinkPath: link,
			},
		})
	}

	eng := &fakeEngine{w: w}
	mounter := &fakeMounter{w: w}
	probe := NewProbe(eng, mounter, &fakeMapper{w: w}, 0)
	probe.exists = func(p string) bool { return w.exists[p] }

	h := &harness{
		w:        w,
		creds:    NewCredentials(),
		prompter: &fakePrompter{},
		scripts:  &fakeScripts{w: w},
		probe:    probe,
		targets:  targets,
		out:      &bytes.Buffer{},
		logs:     &bytes.Buffer{},
	}
	t.Cleanup(h.creds.Destroy)

	log := ui.NewDiscardLogger()
	log.Out = h.logs

	h.o = New(Deps{
		Engine:   eng,
		Mounter:  mounter,
		Teardown: &fakeTeardown{w: w},
		Checker:  &fakeChecker{w: w},
		Disks:    &fakeDisks{w: w},
		Scripts:  h.scripts,
		Power:    &fakePower{w: w},
		Prompter: h.prompter,
		Probe:    probe,
	}, targets, h.creds, Options{
		MountOptions: config.MountOptionList{"users", "exec"},
		MountScript:  config.DefaultMountScript,
		UmountScript: config.DefaultUmountScript,
		Spindown:     true,
		StopServices: []string{"dbus.service"},
		SessionID:    "test-session",
	}, log)
	h.o.SetOutput(h.out)
	h.o.sleep = func(d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

func (h *harness) reply(replies ...string) {
	h.prompter.replies = append(h.prompter.replies, replies...)
}

// mountAll brings every target to MOUNTED with the right credentials
func (h *harness) mountAll(t *testing.T) {
	t.Helper()
	h.reply(goodPassword, goodPIM)
	res, err := h.o.MountAll(MountRequest{})
	require.NoError(t, err)
	require.False(t, res.Aborted)
	h.w.events = nil
}

func (h *harness) state(t *testing.T, i int) Status {
	t.Helper()
	return h.probe.Status(h.targets[i])
}

// backing returns the full fixed-size storage of every credential field
func backing(c *Credentials) [][]byte {
	return [][]byte{
		c.password.Bytes()[:system.SecureBufferSize],
		c.pim.Bytes()[:system.SecureBufferSize],
		c.hash.Bytes()[:system.SecureBufferSize],
		c.cipher.Bytes()[:system.SecureBufferSize],
	}
}

func assertNoSecret(t *testing.T, c *Credentials, secrets ...string) {
	t.Helper()
	for _, buf := range backing(c) {
		for _, s := range secrets {
			require.False(t, bytes.Contains(buf, []byte(s)), "secret %q survived the wipe", s)
		}
	}
}
