package i18n

// Translator retrieves localized messages for issue codes.
// data carries optional values to embed in the message (for example
// "expected", "got" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":     "invalid type",
		"invalid_value":    "invalid value",
		"invalid_enum":     "value is not a member of the enumeration",
		"invalid_format":   "invalid format",
		"no_default":       "field has no value and no default",
		"null_not_allowed": "null is not allowed",
		"unknown_key":      "unknown key",
		"schema_missing":   "record schema name missing",
		"schema_unknown":   "unknown record schema",
		"schema_mismatch":  "record has the wrong schema",
		"schema_conflict":  "ambiguous record schema name",
		"duplicate_key":    "duplicate key",
		"parse_error":      "parse error",
	},
	"ja": {
		"invalid_type":     "型が不正です",
		"invalid_value":    "値が不正です",
		"invalid_enum":     "列挙値に含まれていません",
		"invalid_format":   "書式が不正です",
		"no_default":       "値もデフォルトもありません",
		"null_not_allowed": "null は許可されていません",
		"unknown_key":      "未知のキーです",
		"schema_missing":   "レコードスキーマ名がありません",
		"schema_unknown":   "未知のレコードスキーマです",
		"schema_mismatch":  "レコードのスキーマが一致しません",
		"schema_conflict":  "レコードスキーマ名が曖昧です",
		"duplicate_key":    "キーが重複しています",
		"parse_error":      "解析エラー",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if exp := data["expected"]; exp != "" {
		msg += " (expected " + exp + ")"
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). A nil Translator restores the English dictionary.
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
