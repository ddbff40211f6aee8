package views

import "sync"

// Workspace is one analyst session's set of mounted views.
type Workspace struct {
	Owner     string
	Dashboard *Dashboard
	Synergy   *SynergyAnalysis
	Company   *CompanyAnalysis
}

func NewWorkspace(owner string, deps Deps) *Workspace {
	return &Workspace{
		Owner:     owner,
		Dashboard: NewDashboard(owner, deps),
		Synergy:   NewSynergyAnalysis(owner, deps),
		Company:   NewCompanyAnalysis(owner, deps),
	}
}

// Close unmounts every view; in-flight fetches are abandoned.
func (w *Workspace) Close() {
	w.Dashboard.Close()
	w.Synergy.Close()
	w.Company.Close()
}

// Workspaces keeps one workspace per session owner.
type Workspaces struct {
	deps Deps

	mu     sync.Mutex
	byUser map[string]*Workspace
}

func NewWorkspaces(deps Deps) *Workspaces {
	return &Workspaces{deps: deps, byUser: map[string]*Workspace{}}
}

// Get returns owner's workspace, creating it on first use.
func (ws *Workspaces) Get(owner string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.byUser[owner]
	if !ok {
		w = NewWorkspace(owner, ws.deps)
		ws.byUser[owner] = w
	}
	return w
}

// Drop closes owner's workspace and discards any transitions it left
// unclaimed. It reports whether a workspace existed.
func (ws *Workspaces) Drop(owner string) bool {
	ws.mu.Lock()
	w, ok := ws.byUser[owner]
	delete(ws.byUser, owner)
	ws.mu.Unlock()
	if ws.deps.Carrier != nil {
		ws.deps.Carrier.Forget(owner)
	}
	if ok {
		w.Close()
	}
	return ok
}

func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.byUser)
}

// CloseAll drops every workspace.
func (ws *Workspaces) CloseAll() {
	ws.mu.Lock()
	all := ws.byUser
	ws.byUser = map[string]*Workspace{}
	ws.mu.Unlock()
	for owner, w := range all {
		if ws.deps.Carrier != nil {
			ws.deps.Carrier.Forget(owner)
		}
		w.Close()
	}
}
