package landing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const DefaultPhonePrefix = "+39"

var (
	ErrBlockNotFound   = errors.New("block not found on page")
	ErrNotCaptureBlock = errors.New("block does not collect leads")
	ErrMissingName     = errors.New("name is required")
	ErrMissingContact  = errors.New("email or phone is required")
)

// Submission is what a visitor sends from a form or quiz block.
type Submission struct {
	BlockID     string         `json:"block_id"`
	Fields      map[string]any `json:"fields"`
	Answers     map[string]any `json:"answers"`
	PhonePrefix string         `json:"phone_prefix"`
}

type CapturedLead struct {
	Name        string
	Email       string
	Phone       string
	Source      string
	QuizAnswers map[string]string
	Extra       map[string]string
}

var contactKeys = map[string]bool{
	"name": true, "nome": true, "cognome": true, "email": true, "phone": true, "telefono": true,
}

// Capture turns a submission into a lead, using the settings of the block it
// came from.
func Capture(blocks []Block, sub Submission) (CapturedLead, error) {
	block, ok := FindBlock(blocks, sub.BlockID)
	if !ok {
		return CapturedLead{}, ErrBlockNotFound
	}
	if block.Type != BlockForm && block.Type != BlockQuiz {
		return CapturedLead{}, ErrNotCaptureBlock
	}

	lead := CapturedLead{
		Name:        leadName(sub.Fields),
		Email:       strings.TrimSpace(stringValue(sub.Fields["email"])),
		Source:      leadSource(block),
		QuizAnswers: FlattenAnswers(sub.Answers),
		Extra:       map[string]string{},
	}
	if lead.Name == "" {
		return CapturedLead{}, ErrMissingName
	}

	phone := stringValue(sub.Fields["phone"])
	if phone == "" {
		phone = stringValue(sub.Fields["telefono"])
	}
	lead.Phone = NormalizePhone(sub.PhonePrefix, phone)
	if lead.Email == "" && lead.Phone == "" {
		return CapturedLead{}, ErrMissingContact
	}

	for k, v := range sub.Fields {
		if contactKeys[k] {
			continue
		}
		if s := stringValue(v); s != "" {
			lead.Extra[k] = s
		}
	}

	return lead, nil
}

func leadSource(b Block) string {
	if s, ok := b.Settings["leadSource"].(string); ok && s != "" {
		return s
	}
	if b.Type == BlockQuiz {
		return "quiz_popup"
	}
	return "landing_form"
}

func leadName(fields map[string]any) string {
	if name := strings.TrimSpace(stringValue(fields["name"])); name != "" {
		return name
	}
	full := strings.TrimSpace(stringValue(fields["nome"]) + " " + stringValue(fields["cognome"]))
	return strings.Join(strings.Fields(full), " ")
}

// NormalizePhone keeps only digits and puts the country prefix in front,
// unless the number already carries one.
func NormalizePhone(prefix, phone string) string {
	phone = strings.TrimSpace(phone)
	hasPlus := strings.HasPrefix(phone, "+")

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	if hasPlus {
		return "+" + digits.String()
	}

	if prefix == "" {
		prefix = DefaultPhonePrefix
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return prefix + digits.String()
}

// FlattenAnswers stores each quiz answer under quiz_<question id>. Multiple
// choice answers are joined with ", ".
func FlattenAnswers(answers map[string]any) map[string]string {
	out := make(map[string]string, len(answers))
	for k, v := range answers {
		out["quiz_"+k] = stringValue(v)
	}
	return out
}

// AnswerKeys returns the flattened keys in a stable order.
func AnswerKeys(flat map[string]string) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, stringValue(p))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
