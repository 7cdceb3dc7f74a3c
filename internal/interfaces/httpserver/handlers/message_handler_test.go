package handlers

import (
	"testing"
)

func TestNormalizePlainText(t *testing.T) {
	msg, err := normalize(&inboundPayload{
		ConversationID: "g@g.us",
		SenderID:       "111@s.whatsapp.net",
		IsGroup:        true,
		Text:           "hola",
		Mentions:       []string{"555@s.whatsapp.net"},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if msg.Text != "hola" || msg.SenderID != "111@s.whatsapp.net" || !msg.IsGroup {
		t.Errorf("unexpected message %+v", msg)
	}
	if len(msg.Mentions) != 1 {
		t.Errorf("expected mentions preserved, got %v", msg.Mentions)
	}
}

func TestNormalizeExtendedText(t *testing.T) {
	msg, err := normalize(&inboundPayload{
		ConversationID: "g@g.us",
		SenderID:       "111@s.whatsapp.net",
		IsGroup:        true,
		ExtendedText: &extendedText{
			Text:         "hola @bot",
			MentionedIDs: []string{"555@lid"},
		},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if msg.Text != "hola @bot" {
		t.Errorf("expected extended text used, got %q", msg.Text)
	}
	if len(msg.Mentions) != 1 || msg.Mentions[0] != "555@lid" {
		t.Errorf("expected extended-text mentions used, got %v", msg.Mentions)
	}
}

func TestNormalizeMediaCaption(t *testing.T) {
	msg, err := normalize(&inboundPayload{
		ConversationID: "111@s.whatsapp.net",
		Media:          &mediaPayload{Caption: "mira esto"},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if msg.Text != "mira esto" {
		t.Errorf("expected caption used, got %q", msg.Text)
	}
}

func TestNormalizeDMSenderDefaultsToConversation(t *testing.T) {
	msg, err := normalize(&inboundPayload{
		ConversationID: "111@s.whatsapp.net",
		Text:           "hola",
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if msg.SenderID != "111@s.whatsapp.net" {
		t.Errorf("expected sender defaulted to conversation peer, got %q", msg.SenderID)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	if _, err := normalize(&inboundPayload{Text: "hola"}); err == nil {
		t.Error("expected missing conversation_id to be rejected")
	}
	if _, err := normalize(&inboundPayload{ConversationID: "g@g.us", IsGroup: true, Text: "hola"}); err == nil {
		t.Error("expected group message without sender to be rejected")
	}
}

func TestNormalizePrefersPlainTextOverVariants(t *testing.T) {
	msg, err := normalize(&inboundPayload{
		ConversationID: "111@s.whatsapp.net",
		Text:           "texto plano",
		ExtendedText:   &extendedText{Text: "texto extendido"},
		Media:          &mediaPayload{Caption: "caption"},
	})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if msg.Text != "texto plano" {
		t.Errorf("expected plain text to win, got %q", msg.Text)
	}
}
