package catalog

import "fmt"

const (
	RecipeSleep  = "安眠ゆるり蒸し"
	RecipeRhythm = "リズム巡り蒸し"
	RecipeDetox  = "デトックス蒸し"
)

type builtinEntry struct {
	code     string
	text     string
	category string
	recipe   string
}

// general (M) questions, menstrual and hormonal ones included.
var mQuestions = []builtinEntry{
	{"M1", "寝つきが悪く、夜中に目が覚める", "自律神経", RecipeSleep},
	{"M2", "緊張しやすく、心配ごとが頭から離れない", "自律神経", RecipeSleep},
	{"M3", "朝が苦手で、ぼーっとしてしまう", "自律神経", RecipeSleep},
	{"M4", "急にイライラしたり涙が出たり、情緒が不安定になる", "自律神経", RecipeSleep},
	{"M5", "音や光に敏感になりやすい", "自律神経", RecipeSleep},
	{"M6", "月経のリズムが安定しない", "ホルモン", RecipeRhythm},
	{"M7", "更年期症状が気になる（ほてり、イライラなど）", "ホルモン", RecipeRhythm},
	{"M8", "月経前に胸の張りや気分の波がある", "ホルモン", RecipeRhythm},
	{"M9", "月経痛が強い or 急に重くなった", "ホルモン", RecipeRhythm},
	{"M10", "花粉症・鼻炎・アトピーなどがある", "免疫", RecipeDetox},
	{"M11", "アレルギーや自己免疫に関する不調がある", "免疫", RecipeDetox},
}

// constitution (F) questions.
var fQuestions = []builtinEntry{
	{"F1", "疲れやすく、だるさが取れない", "気", RecipeSleep},
	{"F2", "ため息が多く、やる気が出ない", "気", RecipeRhythm},
	{"F3", "お腹が張りやすく、ガスがたまりやすい", "気", RecipeRhythm},
	{"F4", "顔色が悪く、肌が乾燥しやすい", "血", RecipeRhythm},
	{"F5", "月経の血量が少ない／色が薄い", "血", RecipeRhythm},
	{"F6", "肩こり・冷え性・経血に塊がある", "血（瘀血）", RecipeRhythm},
	{"F7", "唇や爪の色が白っぽくなる", "血", RecipeRhythm},
	{"F8", "むくみやすく、身体が重だるい", "水", RecipeDetox},
	{"F9", "トイレが近い／汗が多い or 少ない", "水", RecipeDetox},
	{"F10", "舌の周りに歯の痕がつきやすい", "水（脾虚）", RecipeDetox},
	{"F11", "のどが渇くのに水を飲みたくない", "水（津液失調）", RecipeDetox},
	{"F12", "抜け毛や白髪が気になる", "精（腎精）", RecipeSleep},
	{"F13", "眠りが浅く、夢をよく見る", "精", RecipeSleep},
	{"F14", "老化や生殖力の衰えを感じる", "精", RecipeSleep},
	{"F15", "耳鳴り・難聴・めまいがある", "精（腎虚）", RecipeSleep},
	{"F16", "腰や膝に力が入らない・だるい", "精（腎虚）", RecipeSleep},
}

// BuiltinDescriptors returns a fresh copy of the embedded fallback table.
func BuiltinDescriptors() []Descriptor {
	entries := make([]builtinEntry, 0, len(mQuestions)+len(fQuestions))
	entries = append(entries, mQuestions...)
	entries = append(entries, fQuestions...)

	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, Descriptor{
			ID:            e.code,
			Title:         e.text,
			Type:          "症状",
			Functions:     []string{e.category},
			RelatedRecipe: []string{e.recipe},
			Description:   describe(e.text, e.category, e.recipe),
		})
	}
	return out
}

func describe(title, category, recipe string) string {
	return fmt.Sprintf("%s という症状は、%sの乱れに関係しており、%sによるケアが有効とされています。", title, category, recipe)
}
