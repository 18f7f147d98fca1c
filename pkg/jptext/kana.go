package jptext

import (
	"strings"
	"unicode"
)

// kanaPairs lists half-width to full-width katakana substitutions. The
// two-rune base+diacritic sequences come first so a voiced pair like ｶﾞ is
// composed into ガ instead of ending up as カ゛.
var kanaPairs = []string{
	"ｶﾞ", "ガ", "ｷﾞ", "ギ", "ｸﾞ", "グ", "ｹﾞ", "ゲ", "ｺﾞ", "ゴ",
	"ｻﾞ", "ザ", "ｼﾞ", "ジ", "ｽﾞ", "ズ", "ｾﾞ", "ゼ", "ｿﾞ", "ゾ",
	"ﾀﾞ", "ダ", "ﾁﾞ", "ヂ", "ﾂﾞ", "ヅ", "ﾃﾞ", "デ", "ﾄﾞ", "ド",
	"ﾊﾞ", "バ", "ﾋﾞ", "ビ", "ﾌﾞ", "ブ", "ﾍﾞ", "ベ", "ﾎﾞ", "ボ",
	"ﾊﾟ", "パ", "ﾋﾟ", "ピ", "ﾌﾟ", "プ", "ﾍﾟ", "ペ", "ﾎﾟ", "ポ",
	"ｳﾞ", "ヴ",

	"ｱ", "ア", "ｲ", "イ", "ｳ", "ウ", "ｴ", "エ", "ｵ", "オ",
	"ｶ", "カ", "ｷ", "キ", "ｸ", "ク", "ｹ", "ケ", "ｺ", "コ",
	"ｻ", "サ", "ｼ", "シ", "ｽ", "ス", "ｾ", "セ", "ｿ", "ソ",
	"ﾀ", "タ", "ﾁ", "チ", "ﾂ", "ツ", "ﾃ", "テ", "ﾄ", "ト",
	"ﾅ", "ナ", "ﾆ", "ニ", "ﾇ", "ヌ", "ﾈ", "ネ", "ﾉ", "ノ",
	"ﾊ", "ハ", "ﾋ", "ヒ", "ﾌ", "フ", "ﾍ", "ヘ", "ﾎ", "ホ",
	"ﾏ", "マ", "ﾐ", "ミ", "ﾑ", "ム", "ﾒ", "メ", "ﾓ", "モ",
	"ﾔ", "ヤ", "ﾕ", "ユ", "ﾖ", "ヨ",
	"ﾗ", "ラ", "ﾘ", "リ", "ﾙ", "ル", "ﾚ", "レ", "ﾛ", "ロ",
	"ﾜ", "ワ", "ｦ", "ヲ", "ﾝ", "ン",
	"ｧ", "ァ", "ｨ", "ィ", "ｩ", "ゥ", "ｪ", "ェ", "ｫ", "ォ",
	"ｬ", "ャ", "ｭ", "ュ", "ｮ", "ョ", "ｯ", "ッ",
	"ｰ", "ー", "ﾞ", "゛", "ﾟ", "゜",
	"｡", "。", "｢", "「", "｣", "」", "､", "、", "･", "・",
}

var kanaReplacer = strings.NewReplacer(kanaPairs...)

// ToFullWidthKana converts half-width katakana (and related punctuation) to
// full-width. Everything else passes through unchanged.
func ToFullWidthKana(raw string) string {
	return kanaReplacer.Replace(raw)
}

// NormalizeSpace trims the string and collapses runs of whitespace,
// full-width U+3000 included, into a single half-width space.
func NormalizeSpace(raw string) string {
	fields := strings.FieldsFunc(raw, unicode.IsSpace)
	return strings.Join(fields, " ")
}
