package advice

import (
	"strconv"
	"strings"

	"github.com/yanqian/meteo-burkina/internal/domain/plan"
	"github.com/yanqian/meteo-burkina/internal/domain/weather"
)

// BuildPrompt renders the generator instructions for a snapshot and tier.
// The section headers it lists are exactly the tier's entitled categories.
func BuildPrompt(snap weather.Snapshot, tier plan.Tier) string {
	var b strings.Builder
	b.WriteString("Tu es un expert météorologue spécialisé dans le climat du Burkina Faso.\n\n")
	b.WriteString("Conditions météo actuelles pour ")
	b.WriteString(locationName(snap))
	b.WriteString(", Burkina Faso :\n")
	b.WriteString("🌡️ Température: " + formatNumber(snap.Temperature) + "°C (ressenti " + formatNumber(snap.FeelsLike) + "°C)\n")
	b.WriteString("💧 Humidité: " + formatNumber(snap.Humidity) + "%\n")
	b.WriteString("🌪️ Vent: " + formatNumber(snap.WindSpeed) + " km/h\n")
	b.WriteString("☁️ Conditions: " + strings.TrimSpace(snap.Description) + "\n\n")
	b.WriteString("Donne des conseils pratiques organisés EXACTEMENT comme ceci :\n")

	for _, c := range tier.Categories() {
		sec, ok := sectionFor(c)
		if !ok {
			continue
		}
		b.WriteString("\n**" + sec.header + ":**\n")
		for _, p := range sec.placeholders {
			b.WriteString("- " + p + "\n")
		}
	}

	b.WriteString("\n(Réponds uniquement avec ces sections)\n")
	b.WriteString("Adapte au contexte burkinabé : climat sahélien, Harmattan, saison des pluies, cultures locales (mil, sorgho, coton).\n")
	b.WriteString("Reste concis et pratique. Utilise le français simple.")
	return b.String()
}

func locationName(snap weather.Snapshot) string {
	if name := strings.TrimSpace(snap.Name); name != "" {
		return name
	}
	return weather.DefaultCity
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
