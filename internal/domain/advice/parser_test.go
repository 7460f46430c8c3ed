package advice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
)

const enterpriseResponse = `Voici mes conseils :

**GÉNÉRAL:**
- Sortez tôt le matin
-   Évitez le soleil de midi   

**SANTÉ:**
- Buvez beaucoup d'eau
- Portez un chapeau

**ACTIVITÉS:**
• Marché le soir
* Football après 17h

**AGRICULTURE:**
- Arrosez le mil tôt

**ENTREPRISE:**
- Décalez les livraisons
- Protégez les stocks
`

func TestParseRecoversTemplateSections(t *testing.T) {
	payload := Parse(enterpriseResponse, plan.TierEnterprise)

	require.Equal(t, []string{"Sortez tôt le matin", "Évitez le soleil de midi"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"Buvez beaucoup d'eau", "Portez un chapeau"}, payload.Items(plan.CategoryHealth))
	require.Equal(t, []string{"Marché le soir", "Football après 17h"}, payload.Items(plan.CategoryActivities))
	require.Equal(t, []string{"Arrosez le mil tôt"}, payload.Items(plan.CategoryAgriculture))
	require.Equal(t, []string{"Décalez les livraisons", "Protégez les stocks"}, payload.Items(plan.CategoryEnterprise))
}

func TestParseRoundTripsPromptTemplate(t *testing.T) {
	for _, tier := range []plan.Tier{plan.TierFree, plan.TierPremium, plan.TierEnterprise} {
		prompt := BuildPrompt(sampleSnapshot(), tier)
		start := strings.Index(prompt, "**")
		end := strings.Index(prompt, "\n(Réponds")
		template := prompt[start:end]

		payload := Parse(template, tier)
		for _, c := range tier.Categories() {
			sec, _ := sectionFor(c)
			require.Equal(t, sec.placeholders[:], payload.Items(c), "tier %s category %s", tier, c)
		}
		require.Len(t, payload, len(tier.Categories()))
	}
}

func TestParseKeepsAllCategoriesRegardlessOfTier(t *testing.T) {
	payload := Parse(enterpriseResponse, plan.TierFree)
	require.NotNil(t, payload.Items(plan.CategoryEnterprise))
	require.NotNil(t, payload.Items(plan.CategoryActivities))

	filtered := payload.Filter(plan.TierFree)
	require.Nil(t, filtered.Items(plan.CategoryEnterprise))
	require.Nil(t, filtered.Items(plan.CategoryActivities))
	require.Len(t, filtered, 2)
}

func TestParseBodyMentioningCategoryDoesNotSwitchSection(t *testing.T) {
	text := "**GÉNÉRAL:**\n- Pensez à votre **santé** avant de sortir\n- Restez à l'ombre\n\n**SANTÉ:**\n- Buvez"
	payload := Parse(text, plan.TierFree)
	require.Equal(t, []string{"Pensez à votre santé avant de sortir", "Restez à l'ombre"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"Buvez"}, payload.Items(plan.CategoryHealth))
}

func TestParseAcceptsUnaccentedAndEnglishHeaders(t *testing.T) {
	text := "**General**\n- a\n**Sante**\n- b\n**Activities**\n- c\n**Enterprise**\n- d"
	payload := Parse(text, plan.TierEnterprise)
	require.Equal(t, []string{"a"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"b"}, payload.Items(plan.CategoryHealth))
	require.Equal(t, []string{"c"}, payload.Items(plan.CategoryActivities))
	require.Equal(t, []string{"d"}, payload.Items(plan.CategoryEnterprise))
}

func TestParseSkipsNonBulletLinesAndEmptyItems(t *testing.T) {
	text := "**GÉNÉRAL:**\nIntroduction sans puce\n- \n- Conseil réel\n---\n"
	payload := Parse(text, plan.TierFree)
	require.Equal(t, []string{"Conseil réel"}, payload.Items(plan.CategoryGeneral))
}

func TestParsePositionalFallbackEnterprise(t *testing.T) {
	text := "Conseils du jour\n- un\n- deux\n- trois\n- quatre\n- cinq\n- six\n- sept\n- huit\n- neuf"
	payload := Parse(text, plan.TierEnterprise)

	require.Equal(t, []string{"un", "deux"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"trois", "quatre"}, payload.Items(plan.CategoryHealth))
	require.Equal(t, []string{"cinq", "six"}, payload.Items(plan.CategoryActivities))
	require.Equal(t, []string{"sept", "huit"}, payload.Items(plan.CategoryEnterprise))
	require.Nil(t, payload.Items(plan.CategoryAgriculture))
}

func TestParsePositionalFallbackSlicesByTier(t *testing.T) {
	text := "- un\n- deux\n- trois\n- quatre\n- cinq\n- six"

	free := Parse(text, plan.TierFree)
	require.Equal(t, []string{"un", "deux"}, free.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"trois", "quatre"}, free.Items(plan.CategoryHealth))
	require.Nil(t, free.Items(plan.CategoryActivities))

	premium := Parse(text, plan.TierPremium)
	require.Equal(t, []string{"cinq", "six"}, premium.Items(plan.CategoryActivities))
	require.Nil(t, premium.Items(plan.CategoryEnterprise))
}

func TestParsePositionalFallbackShortResponse(t *testing.T) {
	text := "**CONSEILS:**\n- un\n- deux\n- trois\n- quatre\n- cinq"
	payload := Parse(text, plan.TierEnterprise)
	require.Equal(t, []string{"cinq"}, payload.Items(plan.CategoryActivities))
	require.Nil(t, payload.Items(plan.CategoryEnterprise))
}

func TestParseUnrecognisableTextYieldsEmptyPayload(t *testing.T) {
	payload := Parse("Désolé, je ne peux pas répondre.", plan.TierPremium)
	require.Empty(t, payload.Filter(plan.TierPremium))
	for _, c := range plan.AllCategories() {
		require.Nil(t, payload.Items(c))
	}
}

func TestPayloadItemsTreatsEmptyAsAbsent(t *testing.T) {
	payload := Payload{plan.CategoryGeneral: {}}
	require.Nil(t, payload.Items(plan.CategoryGeneral))
	require.Nil(t, payload.Items(plan.CategoryHealth))
	require.Empty(t, payload.Filter(plan.TierFree))
}

func TestParseHeaderAfterLeadInText(t *testing.T) {
	text := "Voici vos conseils : **GÉNÉRAL:**\n- g1\n- g2\n\n**SANTÉ:**\n- h1\n- h2"
	payload := Parse(text, plan.TierFree)
	require.Equal(t, []string{"g1", "g2"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"h1", "h2"}, payload.Items(plan.CategoryHealth))
}

func TestParseNumberedHeaders(t *testing.T) {
	text := "1. **GÉNÉRAL:**\n- g1\n2. **SANTÉ:**\n- h1\n3. **ACTIVITÉS:**\n- a1\n4. **AGRICULTURE:**\n- ag1"
	payload := Parse(text, plan.TierPremium)
	require.Equal(t, []string{"g1"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"h1"}, payload.Items(plan.CategoryHealth))
	require.Equal(t, []string{"a1"}, payload.Items(plan.CategoryActivities))
	require.Equal(t, []string{"ag1"}, payload.Items(plan.CategoryAgriculture))
}

func TestParseHeadersPrefixedWithEmoji(t *testing.T) {
	text := "☀️ **GÉNÉRAL:**\n- g1\n🩺 **SANTÉ:**\n- h1\n🌾 **AGRICULTURE:**\n- ag1"
	payload := Parse(text, plan.TierPremium)
	require.Equal(t, []string{"g1"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"h1"}, payload.Items(plan.CategoryHealth))
	require.Equal(t, []string{"ag1"}, payload.Items(plan.CategoryAgriculture))
}

func TestParseBulletedHeaderLine(t *testing.T) {
	text := "- **GÉNÉRAL:**\n- g1\n- **SANTÉ**\n- h1"
	payload := Parse(text, plan.TierFree)
	require.Equal(t, []string{"g1"}, payload.Items(plan.CategoryGeneral))
	require.Equal(t, []string{"h1"}, payload.Items(plan.CategoryHealth))
}
