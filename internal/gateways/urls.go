package gateway

import (
	"net/url"
	"strings"
)

// URLConfig holds the deployment values used to build return URLs.
type URLConfig struct {
	AppBaseURL     string
	SuccessPath    string
	CancelPath     string
	DeepLinkScheme string
}

// ReturnIntent describes the caller of a checkout.
type ReturnIntent struct {
	Origin        string
	Referer       string
	SuccessURL    string
	CancelURL     string
	Mobile        bool
	PaymentType   string
	TransactionID string
	BookingID     string
}

type ReturnURLs struct {
	Success string
	Cancel  string
}

// ResolveReturnURLs picks where the gateway sends the browser afterwards.
// Explicit overrides win. Mobile callers get the app's deep link. Everyone
// else lands on the success or cancel page under their own origin.
func ResolveReturnURLs(cfg URLConfig, in ReturnIntent) ReturnURLs {
	var out ReturnURLs

	if in.Mobile {
		scheme := cfg.DeepLinkScheme
		if scheme == "" {
			scheme = "healthythako"
		}
		kind := url.QueryEscape(in.PaymentType)
		out.Success = scheme + "://payment/success?type=" + kind
		out.Cancel = scheme + "://payment/cancelled?type=" + kind
	} else {
		base := callerOrigin(in.Origin, in.Referer, cfg.AppBaseURL)
		q := url.Values{}
		if in.PaymentType != "" {
			q.Set("type", in.PaymentType)
		}
		if in.TransactionID != "" {
			q.Set("transaction_id", in.TransactionID)
		}
		if in.BookingID != "" {
			q.Set("booking_id", in.BookingID)
		}
		out.Success = joinURL(base, cfg.SuccessPath, q)
		out.Cancel = joinURL(base, cfg.CancelPath, q)
	}

	if in.SuccessURL != "" {
		out.Success = in.SuccessURL
	}
	if in.CancelURL != "" {
		out.Cancel = in.CancelURL
	}
	return out
}

func callerOrigin(origin, referer, fallback string) string {
	for _, candidate := range []string{origin, referer, fallback} {
		if o := originOf(candidate); o != "" {
			return o
		}
	}
	return ""
}

func originOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func joinURL(base, p string, q url.Values) string {
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	s := strings.TrimRight(base, "/") + p
	if enc := q.Encode(); enc != "" {
		s += "?" + enc
	}
	return s
}
