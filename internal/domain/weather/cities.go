package weather

import "strings"

// City is a Burkinabè locality offered in the city picker.
type City struct {
	Name   string  `json:"name"`
	Region string  `json:"region"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// DefaultCity is shown when no city is selected.
const DefaultCity = "Ouagadougou"

var burkinaCities = []City{
	{Name: "Ouagadougou", Region: "Centre", Lat: 12.3714, Lon: -1.5197},
	{Name: "Bobo-Dioulasso", Region: "Hauts-Bassins", Lat: 11.1771, Lon: -4.2979},
	{Name: "Koudougou", Region: "Centre-Ouest", Lat: 12.2526, Lon: -2.3627},
	{Name: "Banfora", Region: "Cascades", Lat: 10.6333, Lon: -4.7667},
	{Name: "Ouahigouya", Region: "Nord", Lat: 13.5828, Lon: -2.4216},
	{Name: "Pouytenga", Region: "Centre-Est", Lat: 12.2500, Lon: -0.4333},
	{Name: "Kaya", Region: "Centre-Nord", Lat: 13.0917, Lon: -1.0844},
	{Name: "Tenkodogo", Region: "Centre-Est", Lat: 11.7800, Lon: -0.3697},
	{Name: "Fada N'Gourma", Region: "Est", Lat: 12.0614, Lon: 0.3581},
	{Name: "Dédougou", Region: "Boucle du Mouhoun", Lat: 12.4634, Lon: -3.4608},
	{Name: "Dori", Region: "Sahel", Lat: 14.0354, Lon: -0.0345},
	{Name: "Gaoua", Region: "Sud-Ouest", Lat: 10.3250, Lon: -3.1750},
	{Name: "Ziniaré", Region: "Plateau-Central", Lat: 12.5828, Lon: -1.2983},
	{Name: "Réo", Region: "Centre-Ouest", Lat: 12.3167, Lon: -2.4667},
	{Name: "Manga", Region: "Centre-Sud", Lat: 11.6636, Lon: -1.0731},
	{Name: "Kongoussi", Region: "Centre-Nord", Lat: 13.3258, Lon: -1.5339},
	{Name: "Djibo", Region: "Sahel", Lat: 14.1022, Lon: -1.6306},
	{Name: "Diébougou", Region: "Sud-Ouest", Lat: 10.9667, Lon: -3.2500},
	{Name: "Léo", Region: "Centre-Ouest", Lat: 11.1000, Lon: -2.1000},
	{Name: "Yako", Region: "Nord", Lat: 12.9597, Lon: -2.2636},
	{Name: "Houndé", Region: "Hauts-Bassins", Lat: 11.5000, Lon: -3.5167},
	{Name: "Nouna", Region: "Boucle du Mouhoun", Lat: 12.7333, Lon: -3.8667},
	{Name: "Tougan", Region: "Boucle du Mouhoun", Lat: 13.0667, Lon: -3.0667},
	{Name: "Kombissiri", Region: "Centre-Sud", Lat: 12.0667, Lon: -1.3333},
	{Name: "Boromo", Region: "Boucle du Mouhoun", Lat: 11.7500, Lon: -2.9333},
	{Name: "Koupéla", Region: "Centre-Est", Lat: 12.1775, Lon: -0.3517},
	{Name: "Zorgho", Region: "Plateau-Central", Lat: 12.2500, Lon: -0.6167},
	{Name: "Pô", Region: "Centre-Sud", Lat: 11.1667, Lon: -1.1333},
	{Name: "Orodara", Region: "Hauts-Bassins", Lat: 10.9833, Lon: -4.9167},
	{Name: "Titao", Region: "Nord", Lat: 13.7667, Lon: -2.0667},
	{Name: "Gorom-Gorom", Region: "Sahel", Lat: 14.4439, Lon: -0.2361},
	{Name: "Diapaga", Region: "Est", Lat: 12.0708, Lon: 1.7889},
	{Name: "Sindou", Region: "Cascades", Lat: 10.6667, Lon: -5.1667},
	{Name: "Batié", Region: "Sud-Ouest", Lat: 9.8833, Lon: -2.9167},
}

// Cities returns the cities whose name contains query, ignoring case.
// An empty query returns the full list.
func Cities(query string) []City {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]City, 0, len(burkinaCities))
	for _, c := range burkinaCities {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

// LookupCity finds a city by exact name, ignoring case.
func LookupCity(name string) (City, bool) {
	n := strings.TrimSpace(name)
	for _, c := range burkinaCities {
		if strings.EqualFold(c.Name, n) {
			return c, true
		}
	}
	return City{}, false
}
