package staging

import (
	"fmt"
	"strings"
)

// Region is a normalized subdivision. Code is set for countries with
// structured subdivisions (United States and Canada, including the US armed
// forces codes); Custom carries the raw region text verbatim for every
// other country. Exactly one of the two is non-empty for a non-blank
// region.
type Region struct {
	Code   string
	Custom string
}

// countryExceptions are legacy codes that must map to fixed countries no
// matter what the source row claims. Both predate the stores' ISO cleanup
// and survive only in old address rows.
var countryExceptions = map[string]string{
	"UK": "GB", // pre-ISO United Kingdom code
	"FX": "FR", // metropolitan France, folded back into FR
}

// NormalizeCountry maps a raw legacy country code to its canonical ISO
// 3166-1 alpha-2 code. Unknown codes are an error; the caller treats that
// as a fatal decode failure rather than guessing.
func NormalizeCountry(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "", fmt.Errorf("empty country code")
	}
	if fixed, ok := countryExceptions[code]; ok {
		return fixed, nil
	}
	// Netherlands Antilles was dissolved; the successor with the old
	// store's customers on it is Curaçao.
	if code == "AN" {
		return "CW", nil
	}
	if _, ok := isoCountries[code]; !ok {
		return "", fmt.Errorf("unknown country code %q", raw)
	}
	return code, nil
}

// NormalizeRegion maps free-text region input to a canonical subdivision
// for the two countries with structured subdivisions. For any other
// country the raw text is stored verbatim as a custom region. A United
// States or Canada region that matches neither the primary tables, the
// subdivision codes themselves, nor the alias table is an error.
func NormalizeRegion(countryCode, raw string) (Region, error) {
	text := strings.TrimSpace(raw)
	switch countryCode {
	case "US":
		return lookupSubdivision("US", text, usStates, usAliases)
	case "CA":
		return lookupSubdivision("CA", text, caProvinces, caAliases)
	default:
		return Region{Custom: text}, nil
	}
}

func lookupSubdivision(country, text string, byName, aliases map[string]string) (Region, error) {
	if text == "" {
		return Region{}, nil
	}
	key := strings.ToLower(text)
	if code, ok := byName[key]; ok {
		return Region{Code: code}, nil
	}
	// The legacy store sometimes holds the code itself.
	upper := strings.ToUpper(text)
	for _, code := range byName {
		if code == upper {
			return Region{Code: code}, nil
		}
	}
	if code, ok := aliases[key]; ok {
		return Region{Code: code}, nil
	}
	return Region{}, fmt.Errorf("unknown %s region %q", country, text)
}

// usStates maps lowercased state names to USPS codes.
var usStates = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "district of columbia": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
	"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"puerto rico": "PR", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virgin islands": "VI", "virginia": "VA",
	"washington": "WA", "west virginia": "WV", "wisconsin": "WI",
	"wyoming": "WY",
}

// usAliases covers the armed-forces books and spellings the primary table
// does not carry. Consulted only after the primary lookup fails.
var usAliases = map[string]string{
	"armed forces africa":      "AE",
	"armed forces americas":    "AA",
	"armed forces canada":      "AE",
	"armed forces europe":      "AE",
	"armed forces middle east": "AE",
	"armed forces pacific":     "AP",
	"washington dc":            "DC",
	"washington d.c.":          "DC",
	"us virgin islands":        "VI",
}

// caProvinces maps lowercased province and territory names to their
// two-letter codes.
var caProvinces = map[string]string{
	"alberta": "AB", "british columbia": "BC", "manitoba": "MB",
	"new brunswick": "NB", "newfoundland and labrador": "NL",
	"northwest territories": "NT", "nova scotia": "NS", "nunavut": "NU",
	"ontario": "ON", "prince edward island": "PE", "quebec": "QC",
	"saskatchewan": "SK", "yukon": "YT",
}

// caAliases covers pre-rename province names still stored in old rows.
var caAliases = map[string]string{
	"newfoundland":    "NL", // renamed 2001
	"quebec ":         "QC",
	"québec":          "QC",
	"yukon territory": "YT",
}

// isoCountries is the ISO 3166-1 alpha-2 code set the destination schema
// accepts.
var isoCountries = func() map[string]struct{} {
	codes := strings.Fields(`
		AD AE AF AG AI AL AM AO AQ AR AS AT AU AW AX AZ BA BB BD BE BF
		BG BH BI BJ BL BM BN BO BQ BR BS BT BV BW BY BZ CA CC CD CF CG
		CH CI CK CL CM CN CO CR CU CV CW CX CY CZ DE DJ DK DM DO DZ EC
		EE EG EH ER ES ET FI FJ FK FM FO FR GA GB GD GE GF GG GH GI GL
		GM GN GP GQ GR GS GT GU GW GY HK HM HN HR HT HU ID IE IL IM IN
		IO IQ IR IS IT JE JM JO JP KE KG KH KI KM KN KP KR KW KY KZ LA
		LB LC LI LK LR LS LT LU LV LY MA MC MD ME MF MG MH MK ML MM MN
		MO MP MQ MR MS MT MU MV MW MX MY MZ NA NC NE NF NG NI NL NO NP
		NR NU NZ OM PA PE PF PG PH PK PL PM PN PR PS PT PW PY QA RE RO
		RS RU RW SA SB SC SD SE SG SH SI SJ SK SL SM SN SO SR SS ST SV
		SX SY SZ TC TD TF TG TH TJ TK TL TM TN TO TR TT TV TW TZ UA UG
		UM US UY UZ VA VC VE VG VI VN VU WF WS YE YT ZA ZM ZW
	`)
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}()
