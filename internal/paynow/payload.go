package paynow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"paynow-terminal-gateway/pkg/apperror"
)

// ProxyType is the PayNow directory identifier kind, encoded as the value
// of the proxy-type sub-field.
type ProxyType string

const (
	// ProxyMobile resolves a Singapore mobile number.
	ProxyMobile ProxyType = "0"
	// ProxyUEN resolves a business registration number.
	ProxyUEN ProxyType = "2"
)

// Top-level EMV field tags, in mandated order.
const (
	tagFormatIndicator  = "00"
	tagInitiationMethod = "01"
	tagMerchantAccount  = "26"
	tagCategoryCode     = "52"
	tagCurrency         = "53"
	tagAmount           = "54"
	tagCountryCode      = "58"
	tagMerchantName     = "59"
	tagMerchantCity     = "60"
	tagAdditionalData   = "62"
	tagChecksum         = "63"
)

// Merchant account info template sub-field tags.
const (
	subTagSchemeID   = "00"
	subTagProxyType  = "01"
	subTagProxyValue = "02"
	subTagEditable   = "03"
	subTagExpiry     = "04"
)

// Additional data template sub-field tags.
const subTagBillNumber = "01"

// Fixed constants of the scheme. These are not inputs: the encoder never
// substitutes different values.
const (
	formatIndicatorValue = "01"
	initiationDynamic    = "12"
	schemeID             = "SG.PAYNOW"
	categoryCodeValue    = "0000"
	currencySGDNumeric   = "702"
	countryCodeSG        = "SG"
	merchantCityValue    = "Singapore"
	expiryDateLayout     = "20060102"
)

const (
	maxMerchantNameLen = 25
	maxReferenceLen    = 25
	maxFieldValueLen   = 99 // length sub-field is two decimal digits
)

var (
	localMobileRe = regexp.MustCompile(`^[0-9]{8}$`)
	intlMobileRe  = regexp.MustCompile(`^\+65[0-9]{8}$`)
	uenRe         = regexp.MustCompile(`^[A-Z0-9]{9,10}$`)
	referenceRe   = regexp.MustCompile(`^[A-Za-z0-9/_-]+$`)
)

// Request carries the inputs for one payload encoding. Amounts are in
// cents; Expiry is optional and encoded as a date when set.
type Request struct {
	ProxyType    ProxyType
	ProxyValue   string
	AmountCents  int64
	Reference    string
	MerchantName string
	Editable     bool
	Expiry       *time.Time
}

// Encode builds the canonical PayNow TLV payload for req. It is pure and
// deterministic: equal requests yield byte-identical payloads. Every
// validation failure is a distinct error and no partial payload is ever
// returned.
func Encode(req Request) (string, error) {
	proxyValue, err := normalizeProxy(req.ProxyType, req.ProxyValue)
	if err != nil {
		return "", err
	}
	if req.AmountCents <= 0 {
		return "", apperror.ErrInvalidAmount()
	}
	if err := validateReference(req.Reference); err != nil {
		return "", err
	}

	merchantName := truncateName(strings.TrimSpace(req.MerchantName))
	if merchantName == "" {
		merchantName = "NA"
	}

	account := newTLVBuilder()
	account.field(subTagSchemeID, schemeID)
	account.field(subTagProxyType, string(req.ProxyType))
	account.field(subTagProxyValue, proxyValue)
	account.field(subTagEditable, editableFlag(req.Editable))
	if req.Expiry != nil {
		account.field(subTagExpiry, req.Expiry.Format(expiryDateLayout))
	}

	additional := newTLVBuilder()
	additional.field(subTagBillNumber, req.Reference)

	b := newTLVBuilder()
	b.field(tagFormatIndicator, formatIndicatorValue)
	b.field(tagInitiationMethod, initiationDynamic)
	b.template(tagMerchantAccount, account)
	b.field(tagCategoryCode, categoryCodeValue)
	b.field(tagCurrency, currencySGDNumeric)
	b.field(tagAmount, formatAmount(req.AmountCents, req.Editable))
	b.field(tagCountryCode, countryCodeSG)
	b.field(tagMerchantName, merchantName)
	b.field(tagMerchantCity, merchantCityValue)
	b.template(tagAdditionalData, additional)
	if b.err != nil {
		return "", apperror.ErrEncodingInvariant(b.err)
	}

	// The checksum input includes the checksum field's own tag+length
	// header; the placeholder-then-append order is load-bearing.
	body := b.String() + tagChecksum + "04"
	payload := body + fmt.Sprintf("%04X", crc16ccitt([]byte(body)))

	if err := verifyPayload(payload); err != nil {
		return "", apperror.ErrEncodingInvariant(err)
	}
	return payload, nil
}

// normalizeProxy validates and canonicalizes the proxy value for its kind.
// Mobile numbers come out in international form; UENs come out uppercased.
func normalizeProxy(kind ProxyType, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ErrProxyValueRequired()
	}

	switch kind {
	case ProxyMobile:
		if localMobileRe.MatchString(value) {
			return "+65" + value, nil
		}
		if intlMobileRe.MatchString(value) {
			return value, nil
		}
		return "", apperror.ErrInvalidMobile(value)
	case ProxyUEN:
		upper := strings.ToUpper(value)
		if !uenRe.MatchString(upper) {
			return "", apperror.ErrInvalidUEN(value)
		}
		return upper, nil
	default:
		return "", apperror.ErrInvalidProxyType(string(kind))
	}
}

func validateReference(ref string) error {
	if ref == "" {
		return apperror.ErrInvalidReference("must not be empty")
	}
	if len(ref) > maxReferenceLen {
		return apperror.ErrInvalidReference(fmt.Sprintf("longer than %d characters", maxReferenceLen))
	}
	if !referenceRe.MatchString(ref) {
		return apperror.ErrInvalidReference("only letters, digits, hyphen, underscore and slash are allowed")
	}
	return nil
}

// formatAmount serializes cents as a decimal string. Fixed amounts always
// carry exactly two fractional digits; payer-editable amounts use the
// minimal decimal form ("15", "15.5", "15.55").
func formatAmount(cents int64, editable bool) string {
	if !editable {
		return fmt.Sprintf("%d.%02d", cents/100, cents%100)
	}
	if cents%100 == 0 {
		return strconv.FormatInt(cents/100, 10)
	}
	return strings.TrimRight(fmt.Sprintf("%d.%02d", cents/100, cents%100), "0")
}

// truncateName cuts a display name down to the field's byte budget without
// splitting a multi-byte rune, so field 59 never carries invalid UTF-8.
func truncateName(name string) string {
	if len(name) <= maxMerchantNameLen {
		return name
	}
	cut := maxMerchantNameLen
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

func editableFlag(editable bool) string {
	if editable {
		return "1"
	}
	return "0"
}

// tlvBuilder accumulates tag-length-value fields, capturing the first
// length overflow instead of emitting a malformed stream.
type tlvBuilder struct {
	sb  strings.Builder
	err error
}

func newTLVBuilder() *tlvBuilder {
	return &tlvBuilder{}
}

func (b *tlvBuilder) field(tag, value string) {
	if b.err != nil {
		return
	}
	if len(value) > maxFieldValueLen {
		b.err = fmt.Errorf("field %s: value length %d exceeds %d", tag, len(value), maxFieldValueLen)
		return
	}
	fmt.Fprintf(&b.sb, "%s%02d%s", tag, len(value), value)
}

// template wraps an inner TLV sequence as the value of an outer tag.
func (b *tlvBuilder) template(tag string, inner *tlvBuilder) {
	if b.err == nil && inner.err != nil {
		b.err = inner.err
		return
	}
	b.field(tag, inner.String())
}

func (b *tlvBuilder) String() string {
	return b.sb.String()
}

// Field is one decoded tag-length-value entry.
type Field struct {
	Tag   string
	Value string
}

// Parse decodes a flat TLV sequence. Composite template values are returned
// raw; feed them back through Parse to walk nested fields.
func Parse(payload string) ([]Field, error) {
	var fields []Field
	for pos := 0; pos < len(payload); {
		if len(payload)-pos < 4 {
			return nil, fmt.Errorf("truncated field header at offset %d", pos)
		}
		tag := payload[pos : pos+2]
		length, ok := parseLength(payload[pos+2 : pos+4])
		if !ok {
			return nil, fmt.Errorf("field %s: malformed length %q", tag, payload[pos+2:pos+4])
		}
		pos += 4
		if pos+length > len(payload) {
			return nil, fmt.Errorf("field %s: declared length %d overruns payload", tag, length)
		}
		fields = append(fields, Field{Tag: tag, Value: payload[pos : pos+length]})
		pos += length
	}
	return fields, nil
}

// parseLength decodes a two-digit length header. strconv accepts signs and
// whitespace, which a hostile stream could use to smuggle a negative length
// past the overrun check, so both bytes are checked explicitly.
func parseLength(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// Find returns the first field with the given tag, or false.
func Find(fields []Field, tag string) (Field, bool) {
	for _, f := range fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// verifyPayload is the encoder's defensive self-check: the assembled stream
// must re-parse cleanly and its trailing checksum must match an independent
// recomputation over everything up to the checksum value.
func verifyPayload(payload string) error {
	fields, err := Parse(payload)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("empty payload")
	}
	last := fields[len(fields)-1]
	if last.Tag != tagChecksum || len(last.Value) != 4 {
		return fmt.Errorf("payload does not end in a 4-digit checksum field")
	}
	want := fmt.Sprintf("%04X", crc16ccitt([]byte(payload[:len(payload)-4])))
	if last.Value != want {
		return fmt.Errorf("checksum mismatch: have %s, want %s", last.Value, want)
	}
	return nil
}
