package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/me/rtodash/internal/toast"
	"github.com/me/rtodash/pkg/model"
)

//go:embed assets
var assets embed.FS

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("15:04")
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"typeBadge": func(t model.NotificationType) string {
		switch t {
		case model.NotificationWarning:
			return "bg-yellow-100 text-yellow-800"
		case model.NotificationAdmin:
			return "bg-purple-100 text-purple-800"
		case model.NotificationInfo:
			return "bg-blue-100 text-blue-800"
		default:
			return "bg-gray-100 text-gray-800"
		}
	},
	"toastColor": func(l toast.Level) string {
		switch l {
		case toast.LevelSuccess:
			return "bg-green-50 text-green-800 border-green-200"
		case toast.LevelError:
			return "bg-red-50 text-red-800 border-red-200"
		default:
			return "bg-blue-50 text-blue-800 border-blue-200"
		}
	},
	"initials": func(name string) string {
		var out []rune
		for _, f := range strings.Fields(name) {
			out = append(out, []rune(strings.ToUpper(f))[0])
			if len(out) == 2 {
				break
			}
		}
		return string(out)
	},
	"lowBalanceID": func() string {
		return "low-balance-warning"
	},
}

// renderTemplate renders a template with the given data.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err := tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	return tmpl.Execute(w, data)
}

// templates holds all template content.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="en"{{if eq .Theme "dark"}} class="dark"{{end}}>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    {{if .Loading}}<meta http-equiv="refresh" content="1">{{end}}
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
    <link rel="stylesheet" href="/static/css/app.css">
</head>
<body class="bg-gray-50 min-h-screen">
    {{if .User}}
    <nav class="bg-white shadow-sm border-b">
        <div class="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
            <div class="flex justify-between h-16">
                <div class="flex">
                    <a href="/" class="flex items-center px-2 py-2 text-xl font-bold text-indigo-600">RTO Reminders</a>
                    <div class="hidden sm:ml-6 sm:flex sm:space-x-8">
                        <a href="/" class="text-gray-500 hover:text-gray-700 inline-flex items-center px-1 pt-1 text-sm font-medium">Dashboard</a>
                        <a href="/wallet" class="text-gray-500 hover:text-gray-700 inline-flex items-center px-1 pt-1 text-sm font-medium">Wallet</a>
                        <a href="/notifications" class="text-gray-500 hover:text-gray-700 inline-flex items-center px-1 pt-1 text-sm font-medium">
                            Notifications{{if .Unread}} <span class="ml-1 rounded-full bg-red-500 text-white text-xs px-2">{{.Unread}}</span>{{end}}
                        </a>
                        <a href="/chat" class="text-gray-500 hover:text-gray-700 inline-flex items-center px-1 pt-1 text-sm font-medium">Support</a>
                        {{if .IsAdmin}}
                        <a href="/admin" class="text-gray-500 hover:text-gray-700 inline-flex items-center px-1 pt-1 text-sm font-medium">Admin</a>
                        {{end}}
                    </div>
                </div>
                <div class="flex items-center space-x-4">
                    <span class="text-sm font-medium text-gray-700" id="nav-balance">₹{{.Balance}}</span>
                    <form action="/theme" method="POST"><button class="text-sm text-gray-500 hover:text-gray-700">{{if eq .Theme "dark"}}Light{{else}}Dark{{end}} mode</button></form>
                    <span class="h-8 w-8 rounded-full bg-indigo-100 text-indigo-700 text-xs font-semibold inline-flex items-center justify-center">{{initials .User.Name}}</span>
                    <span class="text-sm text-gray-500">{{.User.DisplayName}}</span>
                    <a href="/logout" class="text-sm text-gray-500 hover:text-gray-700">Logout</a>
                </div>
            </div>
        </div>
    </nav>
    {{end}}

    {{if .Toasts}}
    <div class="max-w-7xl mx-auto pt-4 px-4 space-y-2">
        {{range .Toasts}}
        <div class="toast rounded-md border p-3 text-sm {{toastColor .Level}}" role="status">{{.Message}}</div>
        {{end}}
    </div>
    {{end}}

    <main class="max-w-7xl mx-auto py-6 sm:px-6 lg:px-8">
        {{template "content" .}}
    </main>
</body>
</html>`,

	"loading": `{{define "content"}}
<div class="min-h-screen flex flex-col items-center justify-center">
    <div class="spinner"></div>
    <p class="mt-4 text-sm text-gray-500">Checking your session...</p>
</div>
{{end}}`,

	"login": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center py-12 px-4">
    <div class="max-w-md w-full space-y-8">
        <div>
            <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">RTO Reminders</h2>
            <p class="mt-2 text-center text-sm text-gray-600">Sign in to your agent account</p>
        </div>
        <form class="mt-8 space-y-4" action="/login" method="POST" novalidate>
            <input type="hidden" name="next" value="{{.Next}}">
            <div>
                <label for="email" class="block text-sm font-medium text-gray-700">Email</label>
                <input id="email" name="email" type="email" value="{{.Form.Email}}" autocomplete="email"
                       class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "email"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="password" class="block text-sm font-medium text-gray-700">Password</label>
                <input id="password" name="password" type="password" autocomplete="current-password"
                       class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "password"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <button type="submit" class="w-full py-2 px-4 rounded-md text-sm font-medium text-white bg-indigo-600 hover:bg-indigo-700">Sign in</button>
            <p class="text-center text-sm text-gray-600">New here? <a href="/register" class="text-indigo-600">Create an account</a></p>
        </form>
    </div>
</div>
{{end}}`,

	"register": `{{define "content"}}
<div class="min-h-screen flex items-center justify-center py-12 px-4">
    <div class="max-w-md w-full space-y-8">
        <h2 class="mt-6 text-center text-3xl font-extrabold text-gray-900">Create your account</h2>
        <form class="mt-8 space-y-4" action="/register" method="POST" novalidate>
            <div>
                <label for="name" class="block text-sm font-medium text-gray-700">Full name</label>
                <input id="name" name="name" type="text" value="{{.Form.Name}}" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "name"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="email" class="block text-sm font-medium text-gray-700">Email</label>
                <input id="email" name="email" type="email" value="{{.Form.Email}}" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "email"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="mobile" class="block text-sm font-medium text-gray-700">Mobile</label>
                <input id="mobile" name="mobile" type="tel" value="{{.Form.Mobile}}" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "mobile"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="company_name" class="block text-sm font-medium text-gray-700">Company (optional)</label>
                <input id="company_name" name="company_name" type="text" value="{{.Form.CompanyName}}" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "company_name"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <div>
                <label for="password" class="block text-sm font-medium text-gray-700">Password</label>
                <input id="password" name="password" type="password" autocomplete="new-password" class="mt-1 block w-full px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
                {{with index .Errors "password"}}<p class="mt-1 text-sm text-red-600">{{.}}</p>{{end}}
            </div>
            <button type="submit" class="w-full py-2 px-4 rounded-md text-sm font-medium text-white bg-indigo-600 hover:bg-indigo-700">Register</button>
            <p class="text-center text-sm text-gray-600">Already registered? <a href="/login" class="text-indigo-600">Sign in</a></p>
        </form>
    </div>
</div>
{{end}}`,

	"dashboard": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="mb-8">
        <h1 class="text-2xl font-semibold text-gray-900">Dashboard</h1>
        <p class="mt-1 text-sm text-gray-500">Welcome back, {{.User.DisplayName}}{{with .User.CompanyName}} ({{.}}){{end}}</p>
    </div>

    <div class="grid grid-cols-1 gap-5 sm:grid-cols-3 mb-8">
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Wallet balance</dt>
            <dd class="mt-1 text-3xl font-semibold text-gray-900" id="balance">₹{{.Balance}}</dd>
            <a href="/wallet" class="text-sm text-indigo-600">Manage wallet</a>
        </div>
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Unread notifications</dt>
            <dd class="mt-1 text-3xl font-semibold text-gray-900">{{.Unread}}</dd>
            <a href="/notifications" class="text-sm text-indigo-600">View all</a>
        </div>
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Cost per message</dt>
            <dd class="mt-1 text-3xl font-semibold text-gray-900">{{if .PerMessageCost}}₹{{.PerMessageCost}}{{else}}-{{end}}</dd>
            <span class="text-sm text-gray-500">Role: {{.User.Role}}</span>
        </div>
    </div>

    <div class="card bg-white shadow rounded-lg">
        <div class="px-4 py-5 border-b border-gray-200"><h3 class="text-lg font-medium text-gray-900">Recent notifications</h3></div>
        <ul class="divide-y divide-gray-200">
            {{range .Notifications}}
            <li class="px-4 py-4" data-id="{{.ID}}">
                <span class="inline-flex px-2 text-xs rounded-full {{typeBadge .Type}}">{{.Type}}</span>
                <span class="ml-2 text-sm font-medium {{if not .Read}}text-gray-900{{else}}text-gray-500{{end}}">{{.Title}}</span>
                <p class="text-sm text-gray-500">{{.Message}}</p>
            </li>
            {{else}}
            <li class="px-4 py-4 text-sm text-gray-500 text-center">No notifications</li>
            {{end}}
        </ul>
    </div>
</div>
{{end}}`,

	"wallet": `{{define "content"}}
<div class="px-4 py-6 sm:px-0 space-y-6">
    <h1 class="text-2xl font-semibold text-gray-900">Wallet</h1>
    <div class="card bg-white shadow rounded-lg p-6">
        <p class="text-sm text-gray-500">Current balance</p>
        <p class="text-4xl font-bold text-gray-900" id="balance">{{.BalanceDisplay}}</p>
        <form action="/wallet/refresh" method="POST" class="mt-4">
            <button class="text-sm text-indigo-600">Refresh balance</button>
        </form>
    </div>

    <div class="card bg-white shadow rounded-lg p-6">
        <h3 class="text-lg font-medium text-gray-900">Recharge</h3>
        {{with .Topup.TopupAmounts}}
        <div class="mt-3 flex space-x-3">
            {{range .}}<span class="px-3 py-1 rounded-md border text-sm">₹{{.StringFixed 0}}</span>{{end}}
        </div>
        {{end}}
        {{if not .Topup.MinTopupAmount.IsZero}}
        <p class="mt-2 text-sm text-gray-500">Minimum recharge ₹{{.Topup.MinTopupAmount.StringFixed 2}}</p>
        {{end}}
        <form action="/wallet/confirm" method="POST" class="mt-4 flex space-x-2">
            <input name="order_id" placeholder="Payment order ID" class="px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
            <button class="py-2 px-4 rounded-md text-sm font-medium text-white bg-indigo-600">Confirm payment</button>
        </form>
    </div>
</div>
{{end}}`,

	"notifications": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <div class="flex justify-between items-center mb-6">
        <h1 class="text-2xl font-semibold text-gray-900">Notifications</h1>
        <div class="flex space-x-3">
            <form action="/notifications/read-all" method="POST"><button class="text-sm text-indigo-600">Mark all read</button></form>
            <form action="/notifications/clear" method="POST"><button class="text-sm text-red-600">Clear all</button></form>
        </div>
    </div>
    <ul class="card bg-white shadow rounded-lg divide-y divide-gray-200" id="notifications">
        {{range .Notifications}}
        <li class="px-4 py-4{{if eq .ID lowBalanceID}} bg-yellow-50{{end}}" data-id="{{.ID}}">
            <div class="flex justify-between">
                <div>
                    <span class="inline-flex px-2 text-xs rounded-full {{typeBadge .Type}}">{{.Type}}</span>
                    <span class="ml-2 text-sm font-medium {{if not .Read}}text-gray-900{{else}}text-gray-500{{end}}">{{.Title}}</span>
                </div>
                <span class="text-xs text-gray-400">{{.Timestamp}}</span>
            </div>
            <p class="mt-1 text-sm text-gray-600">{{.Message}}</p>
        </li>
        {{else}}
        <li class="px-4 py-8 text-sm text-gray-500 text-center">You're all caught up</li>
        {{end}}
    </ul>
</div>
{{end}}`,

	"chat": `{{define "content"}}
<div class="px-4 py-6 sm:px-0 max-w-2xl">
    <h1 class="text-2xl font-semibold text-gray-900 mb-4">Support</h1>
    <div class="card bg-white shadow rounded-lg p-4 space-y-2" id="transcript">
        {{range .Transcript}}
        <div class="rounded-md p-3 text-sm {{if eq .From "user"}}chat-user{{else}}chat-bot{{end}}">
            <p>{{.Text}}</p>
            <p class="text-xs text-gray-400 mt-1">{{formatTime .At}}</p>
        </div>
        {{end}}
    </div>
    <form action="/chat" method="POST" class="mt-4 flex space-x-2">
        <input name="message" autocomplete="off" placeholder="Type your question" class="flex-1 px-3 py-2 border border-gray-300 rounded-md sm:text-sm">
        <button class="py-2 px-4 rounded-md text-sm font-medium text-white bg-indigo-600">Send</button>
    </form>
</div>
{{end}}`,

	"admin": `{{define "content"}}
<div class="px-4 py-6 sm:px-0">
    <h1 class="text-2xl font-semibold text-gray-900 mb-6">Admin</h1>
    <div class="grid grid-cols-1 gap-5 sm:grid-cols-3">
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Signed in as</dt>
            <dd class="mt-1 text-lg font-semibold text-gray-900">{{.User.Email}}</dd>
            <span class="text-sm text-gray-500">{{.User.Role}}</span>
        </div>
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Active dashboard clients</dt>
            <dd class="mt-1 text-3xl font-semibold text-gray-900" id="active-clients">{{.ActiveClients}}</dd>
        </div>
        <div class="card bg-white shadow rounded-lg p-5">
            <dt class="text-sm font-medium text-gray-500">Uptime</dt>
            <dd class="mt-1 text-3xl font-semibold text-gray-900">{{.Uptime}}</dd>
            <a href="/metrics" class="text-sm text-indigo-600">Metrics</a>
        </div>
    </div>
</div>
{{end}}`,
}
