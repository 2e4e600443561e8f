package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// fakeStore is an in-memory repository.Store. InTx calls are serialized and rolled back
// on error by restoring a snapshot.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID      int
	users       map[int]model.User
	projects    map[int]model.Project
	memberships map[[2]int]model.Membership
	tasks       map[int]model.Task
	labels      map[int]model.Label
	taskLabels  map[[2]int]bool
	comments    map[int]model.Comment

	// taskConflicts makes the next N CreateTask calls fail as a lost numbering race.
	taskConflicts int
	// failures injects an error for the named method.
	failures map[string]error

	inTx bool
	// lockedReads counts GetTaskForUpdate calls made inside InTx.
	lockedReads int
	// beforeUpdateTask runs ahead of UpdateTask, standing in for a write that commits
	// between the read and the update.
	beforeUpdateTask func(taskID int)
	// onCreateTask and onCreateComment observe inserts while the caller holds its locks.
	onCreateTask    func(t *model.Task)
	onCreateComment func(c *model.Comment)
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       map[int]model.User{},
		projects:    map[int]model.Project{},
		memberships: map[[2]int]model.Membership{},
		tasks:       map[int]model.Task{},
		labels:      map[int]model.Label{},
		taskLabels:  map[[2]int]bool{},
		comments:    map[int]model.Comment{},
		failures:    map[string]error{},
	}
}

func (f *fakeStore) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) fail(method string) error {
	return f.failures[method]
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	users, projects, memberships := copyMap(f.users), copyMap(f.projects), copyMap(f.memberships)
	tasks, labels, taskLabels, comments := copyMap(f.tasks), copyMap(f.labels), copyMap(f.taskLabels), copyMap(f.comments)
	f.inTx = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inTx = false
		f.mu.Unlock()
	}()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.users, f.projects, f.memberships = users, projects, memberships
		f.tasks, f.labels, f.taskLabels, f.comments = tasks, labels, taskLabels, comments
		f.mu.Unlock()
		return err
	}
	return nil
}

// users

func (f *fakeStore) addUser(username string, role model.Role) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := model.User{
		ID:        f.id(),
		Email:     username + "@example.com",
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
		Role:      role,
	}
	f.users[u.ID] = u
	return &u
}

func (f *fakeStore) CreateUser(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return &model.ConstraintError{Constraint: "users_email_lower_idx"}
		}
		if existing.Username == u.Username {
			return &model.ConstraintError{Constraint: "users_username_key"}
		}
	}
	u.ID = f.id()
	f.users[u.ID] = *u
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, model.NotFound("user", id)
	}
	return &u, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, model.NotFound("user", email)
}

func (f *fakeStore) FindUsersByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.users {
		for _, name := range usernames {
			if u.Username == name {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	users, _ := f.FindUsersByUsernames(ctx, []string{username})
	return len(users) > 0, nil
}

func (f *fakeStore) SetUserBanned(ctx context.Context, id int, banned bool, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.NotFound("user", id)
	}
	u.Banned, u.BannedAt = banned, at
	f.users[id] = u
	return nil
}

// projects

func (f *fakeStore) CreateProject(ctx context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.projects {
		if existing.Slug == p.Slug {
			return &model.ConstraintError{Constraint: "projects_slug_key"}
		}
		if existing.OwnerID == p.OwnerID && existing.Name == p.Name {
			return &model.ConstraintError{Constraint: ownerNameConstraint}
		}
	}
	p.ID = f.id()
	f.projects[p.ID] = *p
	return nil
}

func (f *fakeStore) GetProject(ctx context.Context, id int) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		return nil, model.NotFound("project", id)
	}
	return &p, nil
}

func (f *fakeStore) GetProjectBySlug(ctx context.Context, slug string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, model.NotFound("project", slug)
}

func (f *fakeStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetProjectBySlug(ctx, slug)
	return err == nil, nil
}

func (f *fakeStore) ProjectNameTaken(ctx context.Context, ownerID int, name string, excludeID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.OwnerID == ownerID && p.Name == name && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateProject(ctx context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[p.ID]; !ok {
		return model.NotFound("project", p.ID)
	}
	f.projects[p.ID] = *p
	return nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteProject"); err != nil {
		return err
	}
	if _, ok := f.projects[id]; !ok {
		return model.NotFound("project", id)
	}
	delete(f.projects, id)
	return nil
}

func (f *fakeStore) ListProjectsForUser(ctx context.Context, userID int) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Project{}
	for key := range f.memberships {
		if key[1] == userID {
			out = append(out, f.projects[key[0]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memberships

func (f *fakeStore) CreateMembership(ctx context.Context, m *model.Membership) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateMembership"); err != nil {
		return err
	}
	key := [2]int{m.ProjectID, m.UserID}
	if _, ok := f.memberships[key]; ok {
		return &model.ConstraintError{Constraint: "project_memberships_project_id_user_id_key"}
	}
	m.ID = f.id()
	f.memberships[key] = *m
	return nil
}

func (f *fakeStore) GetMembership(ctx context.Context, projectID, userID int) (*model.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memberships[[2]int{projectID, userID}]
	if !ok {
		return nil, model.NotFound("membership", userID)
	}
	return &m, nil
}

func (f *fakeStore) DeleteMembership(ctx context.Context, projectID, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteMembership"); err != nil {
		return err
	}
	key := [2]int{projectID, userID}
	if _, ok := f.memberships[key]; !ok {
		return model.NotFound("membership", userID)
	}
	delete(f.memberships, key)
	return nil
}

func (f *fakeStore) DeleteProjectMemberships(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.memberships {
		if key[0] == projectID {
			delete(f.memberships, key)
		}
	}
	return nil
}

func (f *fakeStore) CountMemberships(ctx context.Context, projectID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.memberships {
		if key[0] == projectID {
			n++
		}
	}
	return n, nil
}

// tasks

func (f *fakeStore) CreateTask(ctx context.Context, t *model.Task) error {
	if f.onCreateTask != nil {
		f.onCreateTask(t)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taskConflicts > 0 {
		f.taskConflicts--
		return &model.ConstraintError{Constraint: "tasks_project_id_task_number_key"}
	}
	for _, existing := range f.tasks {
		if existing.ProjectID == t.ProjectID && existing.TaskNumber == t.TaskNumber {
			return &model.ConstraintError{Constraint: "tasks_project_id_task_number_key"}
		}
	}
	t.ID = f.id()
	f.tasks[t.ID] = *t
	return nil
}

func (f *fakeStore) GetTask(ctx context.Context, id int) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, model.NotFound("task", id)
	}
	return &t, nil
}

func (f *fakeStore) GetTaskForUpdate(ctx context.Context, id int) (*model.Task, error) {
	f.mu.Lock()
	if f.inTx {
		f.lockedReads++
	}
	f.mu.Unlock()
	return f.GetTask(ctx, id)
}

// UpdateTask keeps the stored status columns and counter, like the SQL does.
func (f *fakeStore) UpdateTask(ctx context.Context, t *model.Task) error {
	if f.beforeUpdateTask != nil {
		f.beforeUpdateTask(t.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tasks[t.ID]
	if !ok {
		return model.NotFound("task", t.ID)
	}
	t.Status, t.StatusChangedAt, t.StatusChangedBy = existing.Status, existing.StatusChangedAt, existing.StatusChangedBy
	t.CommentsCount = existing.CommentsCount
	f.tasks[t.ID] = *t
	return nil
}

func (f *fakeStore) SetTaskStatus(ctx context.Context, id int, status model.TaskStatus, changedAt time.Time, changedBy int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return model.NotFound("task", id)
	}
	t.Status, t.StatusChangedAt, t.StatusChangedBy = status, &changedAt, &changedBy
	f.tasks[id] = t
	return nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteTask"); err != nil {
		return err
	}
	if _, ok := f.tasks[id]; !ok {
		return model.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) DeleteProjectTasks(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tasks {
		if t.ProjectID == projectID {
			delete(f.tasks, id)
		}
	}
	return nil
}

func (f *fakeStore) MaxTaskNumber(ctx context.Context, projectID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, t := range f.tasks {
		if t.ProjectID == projectID && t.TaskNumber > highest {
			highest = t.TaskNumber
		}
	}
	return highest, nil
}

func (f *fakeStore) MaxTaskPosition(ctx context.Context, projectID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, t := range f.tasks {
		if t.ProjectID == projectID && t.Position > highest {
			highest = t.Position
		}
	}
	return highest, nil
}

func (f *fakeStore) projectTasks(projectID int, keep func(model.Task) bool) []model.Task {
	out := []model.Task{}
	for _, t := range f.tasks {
		if t.ProjectID == projectID && keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) CountTasksByStatus(ctx context.Context, projectID int) (map[model.TaskStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[model.TaskStatus]int{}
	for _, t := range f.projectTasks(projectID, func(model.Task) bool { return true }) {
		counts[t.Status]++
	}
	return counts, nil
}

func (f *fakeStore) ListOverdueTasks(ctx context.Context, projectID int, today time.Time) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projectTasks(projectID, func(t model.Task) bool {
		return t.DueDate.Before(today) && t.Status != model.StatusDone
	}), nil
}

func (f *fakeStore) ListTasksDueBetween(ctx context.Context, projectID int, from, to time.Time) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projectTasks(projectID, func(t model.Task) bool {
		return !t.DueDate.Before(from) && !t.DueDate.After(to)
	}), nil
}

func (f *fakeStore) UnassignTasks(ctx context.Context, projectID, userID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, t := range f.tasks {
		if t.ProjectID == projectID && t.AssigneeID != nil && *t.AssigneeID == userID {
			t.AssigneeID = nil
			f.tasks[id] = t
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) AdjustCommentsCount(ctx context.Context, taskID, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return model.NotFound("task", taskID)
	}
	t.CommentsCount += delta
	if t.CommentsCount < 0 {
		t.CommentsCount = 0
	}
	f.tasks[taskID] = t
	return nil
}

// labels

func (f *fakeStore) CreateLabel(ctx context.Context, l *model.Label) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.labels {
		if existing.Name == l.Name {
			return &model.ConstraintError{Constraint: "labels_name_key"}
		}
	}
	l.ID = f.id()
	f.labels[l.ID] = *l
	return nil
}

func (f *fakeStore) GetLabelByName(ctx context.Context, name string) (*model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.labels {
		if l.Name == name {
			return &l, nil
		}
	}
	return nil, model.NotFound("label", name)
}

func (f *fakeStore) LabelUsageCount(ctx context.Context, labelID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for key := range f.taskLabels {
		if key[1] == labelID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) MostUsedLabels(ctx context.Context, limit int) ([]model.LabelUsage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MostUsedLabels"); err != nil {
		return nil, err
	}
	out := []model.LabelUsage{}
	for _, l := range f.labels {
		u := model.LabelUsage{Label: l}
		for key := range f.taskLabels {
			if key[1] == l.ID {
				u.UsageCount++
			}
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) labelsWhere(keep func(taskID int) bool) []model.Label {
	seen := map[int]bool{}
	out := []model.Label{}
	for key := range f.taskLabels {
		if keep(key[0]) && !seen[key[1]] {
			seen[key[1]] = true
			out = append(out, f.labels[key[1]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStore) ProjectLabels(ctx context.Context, projectID int) ([]model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labelsWhere(func(taskID int) bool { return f.tasks[taskID].ProjectID == projectID }), nil
}

func (f *fakeStore) TaskLabels(ctx context.Context, taskID int) ([]model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labelsWhere(func(id int) bool { return id == taskID }), nil
}

func (f *fakeStore) AttachLabel(ctx context.Context, taskID, labelID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]int{taskID, labelID}
	if f.taskLabels[key] {
		return false, nil
	}
	f.taskLabels[key] = true
	return true, nil
}

func (f *fakeStore) DetachLabel(ctx context.Context, taskID, labelID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.taskLabels, [2]int{taskID, labelID})
	return nil
}

func (f *fakeStore) DeleteTaskLabels(ctx context.Context, taskID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.taskLabels {
		if key[0] == taskID {
			delete(f.taskLabels, key)
		}
	}
	return nil
}

func (f *fakeStore) DeleteProjectTaskLabels(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.taskLabels {
		if f.tasks[key[0]].ProjectID == projectID {
			delete(f.taskLabels, key)
		}
	}
	return nil
}

// comments

func (f *fakeStore) CreateComment(ctx context.Context, c *model.Comment) error {
	if f.onCreateComment != nil {
		f.onCreateComment(c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateComment"); err != nil {
		return err
	}
	for _, existing := range f.comments {
		if existing.TaskID == c.TaskID && existing.Position == c.Position {
			return &model.ConstraintError{Constraint: "comments_task_id_position_key"}
		}
	}
	c.ID = f.id()
	f.comments[c.ID] = *c
	return nil
}

func (f *fakeStore) GetComment(ctx context.Context, id int) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[id]
	if !ok {
		return nil, model.NotFound("comment", id)
	}
	return &c, nil
}

func (f *fakeStore) UpdateComment(ctx context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[c.ID]; !ok {
		return model.NotFound("comment", c.ID)
	}
	f.comments[c.ID] = *c
	return nil
}

func (f *fakeStore) DeleteComment(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[id]; !ok {
		return model.NotFound("comment", id)
	}
	delete(f.comments, id)
	return nil
}

func (f *fakeStore) MaxCommentPosition(ctx context.Context, taskID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, c := range f.comments {
		if c.TaskID == taskID && c.Position > highest {
			highest = c.Position
		}
	}
	return highest, nil
}

func (f *fakeStore) ListComments(ctx context.Context, taskID int) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Comment{}
	for _, c := range f.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeStore) DeleteTaskComments(ctx context.Context, taskID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if c.TaskID == taskID {
			delete(f.comments, id)
		}
	}
	return nil
}

func (f *fakeStore) DeleteProjectComments(ctx context.Context, projectID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.comments {
		if f.tasks[c.TaskID].ProjectID == projectID {
			delete(f.comments, id)
		}
	}
	return nil
}
