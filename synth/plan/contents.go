package plan

import (
	"fmt"
	"strings"
)

// File bodies of the demo repositories.

const coreReadme = "# Core API\n\nShared payments/auth helpers.\n"

const coreAuth = `def authenticate(token: str) -> bool:
    return token.startswith("tok_")
`

const paymentsInitial = `"""Core payments workflow."""


def create_payment(amount: float, currency: str) -> dict:
    """Create a payment using the initial contract (no VAT)."""
    if amount <= 0:
        raise ValueError("amount must be positive")
    return {
        "amount": amount,
        "currency": currency.upper(),
        "status": "pending",
        "requires_vat_code": False,
    }
`

const paymentsOptionalVAT = `"""Core payments workflow."""


def create_payment(amount: float, currency: str, vat_code: str | None = None) -> dict:
    """Allow downstream callers to include a VAT code (optional)."""
    if amount <= 0:
        raise ValueError("amount must be positive")
    payload = {
        "amount": amount,
        "currency": currency.upper(),
        "status": "pending",
        "requires_vat_code": False,
    }
    if vat_code:
        payload["vat_code"] = vat_code
    return payload
`

const paymentsRequiredVAT = `"""Core payments workflow with VAT enforcement for EU regions."""


EU_CURRENCIES = {"EUR", "SEK", "DKK", "NOK"}


def create_payment(
    amount: float,
    currency: str,
    *,
    region: str = "US",
    vat_code: str | None = None,
) -> dict:
    """Require vat_code for EU customers to satisfy compliance."""
    if amount <= 0:
        raise ValueError("amount must be positive")

    upper_region = region.upper()
    currency = currency.upper()

    if upper_region == "EU" or currency in EU_CURRENCIES:
        if not vat_code:
            raise ValueError("vat_code is required for EU payments")

    payload = {
        "amount": amount,
        "currency": currency,
        "region": upper_region,
        "status": "pending",
        "requires_vat_code": upper_region == "EU" or currency in EU_CURRENCIES,
    }
    if vat_code:
        payload["vat_code"] = vat_code
    return payload
`

// openapiPayments renders the payments contract at a given
// version. extra is appended to the request properties.
func openapiPayments(version, summary, required, extra string) string {
	return fmt.Sprintf(`openapi: 3.0.0
info:
  title: Core Payments API
  version: "%s"
paths:
  /v1/payments/create:
    post:
      summary: %s
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [%s]
              properties:
                amount:
                  type: number
                currency:
                  type: string
%s      responses:
        "200":
          description: Payment created
`, version, summary, required, extra)
}

const vatOptionalProps = `                vat_code:
                  type: string
                  description: Optional VAT code for EU merchants
`

const vatRequiredProps = `                region:
                  type: string
                  enum: [US, EU, ROW]
                vat_code:
                  type: string
                  description: Required when region is EU
`

func corePaymentsDoc(vatRequired bool) string {
	doc := `# Payments API

The /v1/payments/create endpoint submits a new payment using the shared
library. Initial integration only requires amount and currency.

Downstream teams embed this module directly or call over HTTP.
`
	if vatRequired {
		doc += `
## VAT

Since 2.0.0 EU payments (region EU or an EU currency) must carry vat_code.
Requests without it are rejected with HTTP 400.
`
	}

	return doc
}

const billingReadme = "# Billing Service\n\nHandles checkout orchestration.\n"

const billingClientInitial = `import json
import urllib.request


CORE_API_URL = "https://core-api.internal/v1/payments/create"


def create_payment(*, amount: float, currency: str) -> dict:
    request = urllib.request.Request(
        CORE_API_URL,
        method="POST",
        data=json.dumps({"amount": amount, "currency": currency}).encode("utf-8"),
        headers={"Content-Type": "application/json"},
    )
    with urllib.request.urlopen(request, timeout=5) as handle:
        return json.loads(handle.read())
`

const billingClientVAT = `import json
import urllib.request


CORE_API_URL = "https://core-api.internal/v1/payments/create"


def create_payment(*, amount: float, currency: str, region: str, vat_code: str | None) -> dict:
    body = {"amount": amount, "currency": currency, "region": region}
    if region.upper() == "EU":
        body["vat_code"] = vat_code

    request = urllib.request.Request(
        CORE_API_URL,
        method="POST",
        data=json.dumps(body).encode("utf-8"),
        headers={"Content-Type": "application/json"},
    )
    with urllib.request.urlopen(request, timeout=5) as handle:
        return json.loads(handle.read())
`

const checkoutInitial = `from .core_api_client import create_payment


def checkout(cart):
    payload = create_payment(amount=cart.total, currency=cart.currency)
    if payload["status"] != "pending":
        raise RuntimeError("Unexpected payment state")
    return {"status": "ok", "payment": payload}
`

const checkoutExpanded = `from .core_api_client import create_payment


def checkout(cart):
    payload = create_payment(amount=cart.total_with_discounts(), currency=cart.currency)
    if payload["status"] != "pending":
        raise RuntimeError("Unexpected payment state")

    if cart.requires_invoice():
        payload["invoice_id"] = cart.invoice_id

    return {"status": "ok", "payment": payload}
`

const checkoutPartialFix = `from .core_api_client import create_payment


def checkout(cart):
    region = "EU" if cart.currency in {"EUR", "SEK"} else "US"
    vat_code = cart.tax_profile.vat_code if region == "EU" else None

    payload = create_payment(
        amount=cart.total_with_discounts(),
        currency=cart.currency,
        region=region,
        vat_code=vat_code,
    )

    if cart.requires_invoice():
        payload["invoice_id"] = cart.invoice_id

    return {"status": "ok", "payment": payload}
`

const billingOnboarding = `# Billing Onboarding

1. Collect the cart total.
2. Call /v1/payments/create with amount and currency.
3. Record the payment_id for future reconciliation.

VAT codes are *not* required for the current contract.
`

func billingAPIUsage(updated bool) string {
	doc := `# API Usage

Billing depends on the shared core-api. Requests currently mirror the OpenAPI spec.
`
	if updated {
		doc += "\n- EU carts must attach a VAT code after the core-api 2.0 breaking change.\n"
	}

	return doc
}

const billingConfig = `core_api:
  url: https://core-api.internal/v1/payments/create
  timeout_seconds: 5
`

const notificationsReadme = "# Notifications Service\n\nSends receipts post-payment.\n"

const notificationsClient = `import json
import urllib.request


CORE_API_URL = "https://core-api.internal/v1/notifications/send"


def send_notification(user_id: str, template: str) -> dict:
    body = {"user_id": user_id, "template": template}
    request = urllib.request.Request(
        CORE_API_URL,
        method="POST",
        data=json.dumps(body).encode("utf-8"),
        headers={"Content-Type": "application/json"},
    )
    with urllib.request.urlopen(request, timeout=5) as handle:
        return json.loads(handle.read())
`

func scheduler(interval int) string {
	return fmt.Sprintf(`import time

DEFAULT_INTERVAL_SECONDS = %d


def run_scheduler(dispatch_fn):
    while True:
        dispatch_fn()
        time.sleep(DEFAULT_INTERVAL_SECONDS)
`, interval)
}

const notificationPlaybook = `# Notification Playbook

The service calls /v1/notifications/send to deliver receipts after billing events.
`

func portalPayments(initial bool) string {
	note := "VAT is required for EU customers but the billing flow doc still needs an update."
	if initial {
		note = "VAT is not part of the request yet."
	}

	return fmt.Sprintf(`# Payments API (Docs Portal)

- Endpoint: POST /v1/payments/create
- Required fields: amount, currency
- Notes: %s
`, note)
}

const portalBilling = `# Billing Flows

The billing team still references older payloads containing amount and currency.
`

func portalChangelog(entries ...string) string {
	var sb strings.Builder

	sb.WriteString("# Changelog\n\n")

	for _, e := range entries {
		sb.WriteString("- ")
		sb.WriteString(e)
		sb.WriteByte('\n')
	}

	return sb.String()
}
