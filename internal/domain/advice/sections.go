package advice

import "github.com/yanqian/meteo-burkina/internal/domain/plan"

// section ties a category to the header the prompt asks for and the
// keywords the parser recognises for it. Keyword order matters: the first
// matching section wins.
type section struct {
	category     plan.Category
	header       string
	keywords     []string
	placeholders [2]string
}

var sections = []section{
	{
		category:     plan.CategoryGeneral,
		header:       "GÉNÉRAL",
		keywords:     []string{"général", "general"},
		placeholders: [2]string{"Premier conseil général pratique", "Deuxième conseil général pratique"},
	},
	{
		category:     plan.CategoryHealth,
		header:       "SANTÉ",
		keywords:     []string{"santé", "sante", "health"},
		placeholders: [2]string{"Premier conseil santé/confort", "Deuxième conseil santé/confort"},
	},
	{
		category:     plan.CategoryActivities,
		header:       "ACTIVITÉS",
		keywords:     []string{"activités", "activites", "activities"},
		placeholders: [2]string{"Premier conseil activités/sorties", "Deuxième conseil activités/sorties"},
	},
	{
		category:     plan.CategoryAgriculture,
		header:       "AGRICULTURE",
		keywords:     []string{"agriculture"},
		placeholders: [2]string{"Premier conseil agriculture si pertinent", "Deuxième conseil agriculture si pertinent"},
	},
	{
		category:     plan.CategoryEnterprise,
		header:       "ENTREPRISE",
		keywords:     []string{"entreprise", "enterprise"},
		placeholders: [2]string{"Premier conseil pour les entreprises", "Deuxième conseil pour les entreprises"},
	},
}

func sectionFor(c plan.Category) (section, bool) {
	for _, s := range sections {
		if s.category == c {
			return s, true
		}
	}
	return section{}, false
}
