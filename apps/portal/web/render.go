package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/record"
	"github.com/trezcool/schoolhub/core/user"
	appfs "github.com/trezcool/schoolhub/fs"
)

const (
	webTmplDir    = "templates/web"
	webLayoutName = "layout"

	csrfField      = "_csrf"
	csrfContextKey = "csrf"
)

type (
	// Page is what every template renders: the shell (navigation, flashes) around Data.
	Page struct {
		AppName string
		Title   string
		Path    string
		Account user.Account
		Nav     []NavItem
		Flashes []Flash
		CSRF    string
		Unread  int
		Data    interface{}
	}

	NavItem struct {
		Label  string
		Path   string
		Active bool
	}

	renderer struct {
		templates map[string]*template.Template
	}
)

var navigation = []struct {
	NavItem
	roles []string
}{
	{NavItem{Label: "Dashboard", Path: "/"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Grade Levels", Path: "/grade-levels"}, []string{user.RoleAdmin}},
	{NavItem{Label: "Students", Path: "/students"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Records", Path: "/records"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Teachers", Path: "/teachers"}, []string{user.RoleAdmin}},
	{NavItem{Label: "Classes", Path: "/classes"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Attendance", Path: "/attendance"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Calendar", Path: "/calendar"}, []string{user.RoleAdmin, user.RoleTeacher}},
	{NavItem{Label: "Finance", Path: "/finance"}, []string{user.RoleAdmin}},
	{NavItem{Label: "Reports", Path: "/reports"}, []string{user.RoleAdmin}},
	{NavItem{Label: "My Portal", Path: "/student-portal"}, []string{user.RoleStudent}},
	{NavItem{Label: "Parent Portal", Path: "/parent-portal"}, []string{user.RoleParent}},
	{NavItem{Label: "Notifications", Path: "/notifications"}, nil},
	{NavItem{Label: "Settings", Path: "/settings"}, []string{user.RoleAdmin}},
}

// NavFor lists the sidebar entries visible to role, marking the one matching current.
func NavFor(role, current string) []NavItem {
	acc := user.Account{Role: role}
	var items []NavItem
	for _, n := range navigation {
		if len(n.roles) > 0 && !acc.HasRole(n.roles...) {
			continue
		}
		item := n.NavItem
		item.Active = current == item.Path || (item.Path != "/" && strings.HasPrefix(current, item.Path+"/"))
		items = append(items, item)
	}
	return items
}

func (s *Server) page(ctx echo.Context, title string, data interface{}) Page {
	p := Page{
		AppName: s.deps.Conf.AppName,
		Title:   title,
		Path:    ctx.Request().URL.Path,
		Flashes: s.popFlashes(ctx),
		Data:    data,
	}
	p.CSRF, _ = ctx.Get(csrfContextKey).(string)

	if acc, ok := contextAccount(ctx); ok {
		p.Account = acc
		p.Nav = NavFor(acc.Role, p.Path)
		n, err := s.deps.Notifications.UnreadCount(ctx.Request().Context(), acc.ID)
		if err != nil {
			s.deps.Logger.Warn(fmt.Sprintf("counting unread notifications: %v", err), err, acc)
		}
		p.Unread = n
	}
	return p
}

func newRenderer(conf *core.Config) (*renderer, error) {
	r := &renderer{templates: make(map[string]*template.Template)}

	fps, err := fs.Glob(appfs.FS, webTmplDir+"/*.gohtml")
	if err != nil {
		return nil, err
	}
	layout := path.Join(webTmplDir, webLayoutName+".gohtml")
	for _, fp := range fps {
		name := strings.TrimSuffix(path.Base(fp), ".gohtml")
		if name == webLayoutName {
			continue
		}
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(appfs.FS, layout, fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fp)
		}
		if conf.Debug || conf.TestMode {
			tmpl = tmpl.Option("missingkey=error")
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("unknown web template %q", name)
	}
	return tmpl.ExecuteTemplate(w, webLayoutName, data)
}

var funcs = template.FuncMap{
	"date":     formatDate,
	"money":    func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"f1":       func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"dash":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"str":      func(v null.String) string { return v.String },
	"orDash":   orDash,
	"humanize": humanize,
	"label":    record.Label,
	"selected": func(a, b string) template.HTMLAttr { return attrIf(a == b, "selected") },
	"checked":  func(b bool) template.HTMLAttr { return attrIf(b, "checked") },
	"seq":      func(n int) []struct{} { return make([]struct{}, n) },
	"list":     func(v ...string) []string { return v },
	"nullInt": func(v null.Int) string {
		if !v.Valid {
			return ""
		}
		return fmt.Sprint(v.Int)
	},
	"score": func(v null.Float64) string {
		if !v.Valid {
			return "-"
		}
		return fmt.Sprintf("%.0f", v.Float64)
	},
}

// formatDate renders YYYY-MM-DD strings and times as "Jan 2, 2006".
func formatDate(v interface{}) string {
	switch d := v.(type) {
	case string:
		t, err := time.Parse(core.DateLayout, d)
		if err != nil {
			return d
		}
		return t.Format("Jan 2, 2006")
	case null.String:
		if !d.Valid {
			return "-"
		}
		return formatDate(d.String)
	case time.Time:
		return d.Format("Jan 2, 2006")
	case null.Time:
		if !d.Valid {
			return "-"
		}
		return d.Time.Format("Jan 2, 2006")
	}
	return fmt.Sprint(v)
}

func orDash(v null.String) string {
	if !v.Valid || v.String == "" {
		return "-"
	}
	return v.String
}

// humanize turns enum values such as "on_leave" into "On leave".
func humanize(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func attrIf(ok bool, attr string) template.HTMLAttr {
	if ok {
		return template.HTMLAttr(attr)
	}
	return ""
}
