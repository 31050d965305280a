package service

import (
	"regexp"
	"strings"
)

var (
	senderNameKeys   = []string{"senderName", "sender_name", "sender", "payerName"}
	receiverNameKeys = []string{"receiverName", "receiver_name", "recipientName"}

	alphaToken   = regexp.MustCompile(`^[A-Za-z][A-Za-z'.-]*$`)
	urlLike      = []string{"http", "www", "://", ".com", "@"}
	txnJargon    = []string{"payment", "transfer", "invoice", "ref", "txn", "transaction", "order", "deposit"}
	digitPattern = regexp.MustCompile(`[0-9]`)
)

// ExtractCandidateName picks the name screened against the block list:
// sender fields, then receiver fields, then a narrow description heuristic.
func ExtractCandidateName(w NormalizedWebhook) string {
	if w.SenderName != "" {
		return w.SenderName
	}
	if name := firstString(w.Metadata, receiverNameKeys...); name != "" {
		return name
	}
	if name := firstString(w.Data, receiverNameKeys...); name != "" {
		return name
	}
	for _, desc := range []string{firstString(w.Metadata, "description"), firstString(w.Data, "description")} {
		if name := nameFromDescription(desc); name != "" {
			return name
		}
	}
	return ""
}

// nameFromDescription accepts 2-4 alphabetic tokens and nothing that looks
// like a URL, a reference or transaction jargon.
func nameFromDescription(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return ""
	}
	lower := strings.ToLower(desc)
	for _, s := range urlLike {
		if strings.Contains(lower, s) {
			return ""
		}
	}
	for _, s := range txnJargon {
		if strings.Contains(lower, s) {
			return ""
		}
	}
	if digitPattern.MatchString(desc) {
		return ""
	}
	tokens := strings.Fields(desc)
	if len(tokens) < 2 || len(tokens) > 4 {
		return ""
	}
	for _, tok := range tokens {
		if !alphaToken.MatchString(tok) {
			return ""
		}
	}
	return strings.Join(tokens, " ")
}
