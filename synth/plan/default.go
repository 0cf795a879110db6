package plan

import (
	"fmt"

	"github.com/byte4ever/synthetic_git/gitops/commitmsg"
)

type person struct {
	name  string
	email string
}

var (
	alice = person{"alice", "alice@oqoqo.local"}
	bob   = person{"bob", "bob@oqoqo.local"}
	carol = person{"carol", "carol@oqoqo.local"}
	dave  = person{"dave", "dave@oqoqo.local"}
	eve   = person{"eve", "eve@oqoqo.local"}
)

func commit(
	id string,
	who person,
	ts string,
	message string,
	summary string,
	ann commitmsg.Annotations,
	files ...FileSpec,
) CommitSpec {
	return CommitSpec{
		ID:          id,
		Message:     message,
		Summary:     summary,
		Author:      who.name,
		Email:       who.email,
		Timestamp:   ts,
		Files:       files,
		Annotations: ann,
	}
}

func file(path, content string) FileSpec {
	return FileSpec{Path: path, Content: content}
}

// merge returns a merge commit on the default branch whose
// second parent is the tip of b and whose content is the
// final state of every file b touched.
func merge(
	id string,
	prev string,
	b BranchSpec,
	who person,
	ts string,
) CommitSpec {
	tip := b.Commits[len(b.Commits)-1].ID

	return CommitSpec{
		ID: id,
		Message: fmt.Sprintf(
			"Merge pull request #%d from %s", b.PR.Number, b.Name,
		),
		Summary:     b.PR.Title,
		Author:      who.name,
		Email:       who.email,
		Timestamp:   ts,
		Files:       BranchFiles(b),
		Parents:     []string{prev, tip},
		Annotations: branchAnnotations(b),
	}
}

// BranchFiles returns the final state of every file touched
// on b, in order of first touch.
func BranchFiles(b BranchSpec) []FileSpec {
	var (
		order []string
		last  = make(map[string]FileSpec)
	)

	for _, c := range b.Commits {
		for _, f := range c.Files {
			if _, ok := last[f.Path]; !ok {
				order = append(order, f.Path)
			}

			last[f.Path] = f
		}
	}

	out := make([]FileSpec, 0, len(order))
	for _, p := range order {
		out = append(out, last[p])
	}

	return out
}

func branchAnnotations(b BranchSpec) commitmsg.Annotations {
	var (
		out  commitmsg.Annotations
		seen = make(map[string]struct{})
		doc  = true
	)

	add := func(dst *[]string, kind string, values []string) {
		for _, v := range values {
			if _, ok := seen[kind+v]; ok {
				continue
			}

			seen[kind+v] = struct{}{}
			*dst = append(*dst, v)
		}
	}

	for _, c := range b.Commits {
		add(&out.Services, "s", c.Annotations.Services)
		add(&out.Components, "c", c.Annotations.Components)
		add(&out.APIs, "a", c.Annotations.APIs)
		doc = doc && c.Annotations.DocChange
	}

	out.DocChange = doc

	return out
}

// Default returns the demo dataset: four services, each
// with a short main line and one feature branch merged back
// into main through a pull request.
func Default() *Plan {
	return &Plan{
		Repos: []RepositorySpec{
			coreAPI(),
			billingService(),
			notificationsService(),
			docsPortal(),
		},
	}
}

func coreAPI() RepositorySpec {
	ann := commitmsg.Annotations{
		Services:   []string{"core-api-service"},
		Components: []string{"core.payments"},
		APIs:       []string{"/v1/payments/create"},
	}

	vat := BranchSpec{
		Name: "feature/require-vat-code",
		Base: "core-2",
		Commits: []CommitSpec{
			commit(
				"core-3", alice, "2025-11-25T10:15:00Z",
				"feat!: require vat_code for EU",
				"Breaking change: vat_code must be provided for EU payments.",
				ann,
				file("src/payments.py", paymentsRequiredVAT),
				file("openapi/payments.yaml", openapiPayments(
					"2.0.0", "Create a payment (VAT required for EU)",
					"amount, currency, region", vatRequiredProps,
				)),
			),
			commit(
				"core-4", alice, "2025-11-25T11:40:00Z",
				"docs: describe VAT requirement",
				"Document the EU vat_code requirement next to the endpoint.",
				commitmsg.Annotations{
					Services:   ann.Services,
					Components: ann.Components,
					APIs:       ann.APIs,
					DocChange:  true,
				},
				file("docs/payments.md", corePaymentsDoc(true)),
			),
		},
		PR: PRSpec{
			Number: 2041,
			Author: "alice",
			Title:  "Add required vat_code to /v1/payments/create",
			Body: "Breaking change: /v1/payments/create now requires vat_code for EU customers. " +
				"Downstream services must update their integrations and doc owners should refresh guides.",
			Labels: []string{"breaking_change", "api_contract"},
		},
	}

	return RepositorySpec{
		Name:          "core-api",
		URL:           "https://github.com/acme/core-api",
		DefaultBranch: DefaultBranch,
		Commits: []CommitSpec{
			commit(
				"core-1", alice, "2025-11-24T09:00:00Z",
				"feat: add payments endpoint",
				"Bootstrap the shared payments module and OpenAPI spec.",
				ann,
				file("README.md", coreReadme),
				file("src/auth.py", coreAuth),
				file("src/payments.py", paymentsInitial),
				file("openapi/payments.yaml", openapiPayments(
					"1.0.0", "Create a payment", "amount, currency", "",
				)),
				file("docs/payments.md", corePaymentsDoc(false)),
			),
			commit(
				"core-2", alice, "2025-11-24T16:00:00Z",
				"feat: allow optional vat_code",
				"Allow downstream callers to pass vat_code without enforcing it.",
				ann,
				file("src/payments.py", paymentsOptionalVAT),
				file("openapi/payments.yaml", openapiPayments(
					"1.1.0", "Create a payment (VAT optional)",
					"amount, currency", vatOptionalProps,
				)),
			),
			merge("core-5", "core-2", vat, alice, "2025-11-25T14:00:00Z"),
		},
		Branches: []BranchSpec{vat},
	}
}

func billingService() RepositorySpec {
	ann := commitmsg.Annotations{
		Services:   []string{"billing-service"},
		Components: []string{"billing.checkout"},
		APIs:       []string{"/v1/payments/create"},
	}

	fix := BranchSpec{
		Name: "fix/eu-vat-code",
		Base: "billing-2",
		Commits: []CommitSpec{
			commit(
				"billing-3", bob, "2025-11-26T09:10:00Z",
				"fix: include vat_code for EU carts",
				"Patch checkout to pass vat_code but only for invoice flows.",
				ann,
				file("src/core_api_client.py", billingClientVAT),
				file("src/checkout.py", checkoutPartialFix),
			),
			commit(
				"billing-4", carol, "2025-11-26T11:45:00Z",
				"docs: refresh onboarding",
				"Update API usage notes but onboarding doc still omits vat_code.",
				commitmsg.Annotations{
					Services:   ann.Services,
					Components: ann.Components,
					APIs:       ann.APIs,
					DocChange:  true,
				},
				file("docs/api_usage.md", billingAPIUsage(true)),
			),
		},
		PR: PRSpec{
			Number: 118,
			Author: "bob",
			Title:  "Fix 400 errors by adding vat_code to payments API calls",
			Body: "We are seeing 400s from core-api after vat_code became mandatory. " +
				"This PR threads vat_code through checkout and notes that docs still need a deeper refresh.",
			Labels: []string{"incident", "docs_followup"},
		},
	}

	return RepositorySpec{
		Name:          "billing-service",
		URL:           "https://github.com/acme/billing-service",
		DefaultBranch: DefaultBranch,
		Commits: []CommitSpec{
			commit(
				"billing-1", bob, "2025-11-24T11:30:00Z",
				"feat: initial checkout integration",
				"Initial billing->core-api wiring without vat_code.",
				ann,
				file("README.md", billingReadme),
				file("src/core_api_client.py", billingClientInitial),
				file("src/checkout.py", checkoutInitial),
				file("config/core_api.yml", billingConfig),
				file("docs/billing_onboarding.md", billingOnboarding),
				file("docs/api_usage.md", billingAPIUsage(false)),
			),
			commit(
				"billing-2", bob, "2025-11-24T18:45:00Z",
				"feat: expand checkout rules",
				"Add invoice path but still rely on old API contract.",
				ann,
				file("src/checkout.py", checkoutExpanded),
			),
			merge("billing-5", "billing-2", fix, bob, "2025-11-26T12:30:00Z"),
		},
		Branches: []BranchSpec{fix},
	}
}

func notificationsService() RepositorySpec {
	ann := commitmsg.Annotations{
		Services:   []string{"notifications-service"},
		Components: []string{"notifications.dispatch"},
	}

	tweak := BranchSpec{
		Name: "chore/scheduler-interval",
		Base: "notifications-1",
		Commits: []CommitSpec{
			commit(
				"notifications-2", dave, "2025-11-24T18:00:00Z",
				"chore: tweak scheduler interval",
				"Increase polling interval to reduce load.",
				ann,
				file("src/scheduler.py", scheduler(120)),
			),
		},
		PR: PRSpec{
			Number: 57,
			Title:  "Reduce notification scheduler load",
			Body:   "Doubles the polling interval of the receipt scheduler to 120 seconds.",
			Labels: []string{"ops"},
		},
	}

	return RepositorySpec{
		Name:          "notifications-service",
		URL:           "https://github.com/acme/notifications-service",
		DefaultBranch: DefaultBranch,
		Commits: []CommitSpec{
			commit(
				"notifications-1", dave, "2025-11-24T12:15:00Z",
				"feat: send payment receipt notifications",
				"Wire notifications to call /v1/notifications/send.",
				commitmsg.Annotations{
					Services:   ann.Services,
					Components: ann.Components,
					APIs:       []string{"/v1/notifications/send"},
				},
				file("README.md", notificationsReadme),
				file("src/notifications.py", notificationsClient),
				file("src/scheduler.py", scheduler(60)),
				file("docs/notification_playbook.md", notificationPlaybook),
			),
			merge(
				"notifications-3", "notifications-1", tweak,
				dave, "2025-11-24T18:30:00Z",
			),
		},
		Branches: []BranchSpec{tweak},
	}
}

func docsPortal() RepositorySpec {
	ann := commitmsg.Annotations{
		Services:   []string{"docs-portal"},
		Components: []string{"docs.payments"},
		APIs:       []string{"/v1/payments/create"},
		DocChange:  true,
	}

	note := BranchSpec{
		Name: "docs/vat-note",
		Base: "docs-1",
		Commits: []CommitSpec{
			commit(
				"docs-2", eve, "2025-11-26T11:00:00Z",
				"docs: partial VAT update",
				"Payments doc references VAT but billing flows remain stale.",
				ann,
				file("docs/payments_api.md", portalPayments(false)),
				file("docs/changelog.md", portalChangelog(
					"Initial payments docs published.",
					"Added VAT note (billing flow pending update).",
				)),
			),
		},
		PR: PRSpec{
			Number: 311,
			Title:  "Mention VAT requirement in payments docs",
			Body:   "Adds the VAT note to the payments page. The billing flows page is still stale.",
			Labels: []string{"docs"},
		},
	}

	return RepositorySpec{
		Name:          "docs-portal",
		URL:           "https://github.com/acme/docs-portal",
		DefaultBranch: DefaultBranch,
		Commits: []CommitSpec{
			commit(
				"docs-1", eve, "2025-11-24T13:00:00Z",
				"docs: document payments API",
				"Initial docs portal entry without vat_code.",
				ann,
				file("docs/payments_api.md", portalPayments(true)),
				file("docs/billing_flows.md", portalBilling),
				file("docs/changelog.md", portalChangelog(
					"Initial payments docs published.",
				)),
			),
			merge("docs-3", "docs-1", note, eve, "2025-11-26T11:30:00Z"),
		},
		Branches: []BranchSpec{note},
	}
}
