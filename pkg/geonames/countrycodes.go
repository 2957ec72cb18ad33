package geonames

import "github.com/crisisgraph/fieldgeo/internal/geo"

// countryCodes maps normalized country names to ISO-3166 alpha-2 codes. Names
// are keyed in the same normalized form the validator uses so lookups work on
// whatever spelling the association stage carried through.
var countryCodes = map[string]string{
	"afghanistan":                          "AF",
	"albania":                              "AL",
	"algeria":                              "DZ",
	"angola":                               "AO",
	"argentina":                            "AR",
	"armenia":                              "AM",
	"australia":                            "AU",
	"austria":                              "AT",
	"azerbaijan":                           "AZ",
	"bahamas":                              "BS",
	"bangladesh":                           "BD",
	"barbados":                             "BB",
	"belarus":                              "BY",
	"belgium":                              "BE",
	"belize":                               "BZ",
	"benin":                                "BJ",
	"bhutan":                               "BT",
	"bolivia":                              "BO",
	"bosniaandherzegovina":                 "BA",
	"botswana":                             "BW",
	"brazil":                               "BR",
	"bulgaria":                             "BG",
	"burkinafaso":                          "BF",
	"burundi":                              "BI",
	"cambodia":                             "KH",
	"cameroon":                             "CM",
	"canada":                               "CA",
	"capeverde":                            "CV",
	"centralafricanrepublic":               "CF",
	"chad":                                 "TD",
	"chile":                                "CL",
	"china":                                "CN",
	"colombia":                             "CO",
	"comoros":                              "KM",
	"congo":                                "CG",
	"costa rica":                           "CR",
	"costarica":                            "CR",
	"croatia":                              "HR",
	"cuba":                                 "CU",
	"cyprus":                               "CY",
	"czech republic":                       "CZ",
	"democratic peoples republic of korea": "KP",
	"democratic republic of congo":         "CD",
	"denmark":                              "DK",
	"djibouti":                             "DJ",
	"dominica":                             "DM",
	"dominicanrepublic":                    "DO",
	"ecuador":                              "EC",
	"egypt":                                "EG",
	"elsalvador":                           "SV",
	"eritrea":                              "ER",
	"estonia":                              "EE",
	"eswatini":                             "SZ",
	"ethiopia":                             "ET",
	"fiji":                                 "FJ",
	"finland":                              "FI",
	"france":                               "FR",
	"gabon":                                "GA",
	"gambia":                               "GM",
	"georgia":                              "GE",
	"germany":                              "DE",
	"ghana":                                "GH",
	"greece":                               "GR",
	"grenada":                              "GD",
	"guatemala":                            "GT",
	"guinea":                               "GN",
	"guineabissau":                         "GW",
	"guyana":                               "GY",
	"haiti":                                "HT",
	"honduras":                             "HN",
	"hungary":                              "HU",
	"iceland":                              "IS",
	"india":                                "IN",
	"indonesia":                            "ID",
	"iran":                                 "IR",
	"iraq":                                 "IQ",
	"ireland":                              "IE",
	"israel":                               "IL",
	"italy":                                "IT",
	"ivorycoast":                           "CI",
	"cotedivoire":                          "CI",
	"jamaica":                              "JM",
	"japan":                                "JP",
	"jordan":                               "JO",
	"kazakhstan":                           "KZ",
	"kenya":                                "KE",
	"kiribati":                             "KI",
	"kuwait":                               "KW",
	"kyrgyzstan":                           "KG",
	"laos":                                 "LA",
	"latvia":                               "LV",
	"lebanon":                              "LB",
	"lesotho":                              "LS",
	"liberia":                              "LR",
	"libya":                                "LY",
	"lithuania":                            "LT",
	"luxembourg":                           "LU",
	"madagascar":                           "MG",
	"malawi":                               "MW",
	"malaysia":                             "MY",
	"maldives":                             "MV",
	"mali":                                 "ML",
	"malta":                                "MT",
	"marshallislands":                      "MH",
	"mauritania":                           "MR",
	"mauritius":                            "MU",
	"mexico":                               "MX",
	"micronesia":                           "FM",
	"moldova":                              "MD",
	"mongolia":                             "MN",
	"montenegro":                           "ME",
	"morocco":                              "MA",
	"mozambique":                           "MZ",
	"myanmar":                              "MM",
	"namibia":                              "NA",
	"nepal":                                "NP",
	"netherlands":                          "NL",
	"newzealand":                           "NZ",
	"nicaragua":                            "NI",
	"niger":                                "NE",
	"nigeria":                              "NG",
	"northmacedonia":                       "MK",
	"norway":                               "NO",
	"oman":                                 "OM",
	"pakistan":                             "PK",
	"palau":                                "PW",
	"palestine":                            "PS",
	"panama":                               "PA",
	"papuanewguinea":                       "PG",
	"paraguay":                             "PY",
	"peru":                                 "PE",
	"philippines":                          "PH",
	"poland":                               "PL",
	"portugal":                             "PT",
	"qatar":                                "QA",
	"republic of korea":                    "KR",
	"romania":                              "RO",
	"russia":                               "RU",
	"rwanda":                               "RW",
	"samoa":                                "WS",
	"saudiarabia":                          "SA",
	"senegal":                              "SN",
	"serbia":                               "RS",
	"seychelles":                           "SC",
	"sierraleone":                          "SL",
	"singapore":                            "SG",
	"slovakia":                             "SK",
	"slovenia":                             "SI",
	"solomonislands":                       "SB",
	"somalia":                              "SO",
	"southafrica":                          "ZA",
	"southsudan":                           "SS",
	"spain":                                "ES",
	"srilanka":                             "LK",
	"sudan":                                "SD",
	"suriname":                             "SR",
	"sweden":                               "SE",
	"switzerland":                          "CH",
	"syria":                                "SY",
	"taiwan":                               "TW",
	"tajikistan":                           "TJ",
	"tanzania":                             "TZ",
	"thailand":                             "TH",
	"timorleste":                           "TL",
	"togo":                                 "TG",
	"tonga":                                "TO",
	"trinidadandtobago":                    "TT",
	"tunisia":                              "TN",
	"turkey":                               "TR",
	"turkiye":                              "TR",
	"turkmenistan":                         "TM",
	"tuvalu":                               "TV",
	"uganda":                               "UG",
	"ukraine":                              "UA",
	"united arab emirates":                 "AE",
	"united kingdom":                       "GB",
	"uruguay":                              "UY",
	"usa":                                  "US",
	"uzbekistan":                           "UZ",
	"vanuatu":                              "VU",
	"venezuela":                            "VE",
	"vietnam":                              "VN",
	"yemen":                                "YE",
	"zambia":                               "ZM",
	"zimbabwe":                             "ZW",
}

// CountryCode resolves a country name to its ISO-3166 alpha-2 code, tolerating
// the spelling variations the normalizer folds together.
func CountryCode(name string) (string, bool) {
	code, ok := countryCodes[geo.NormalizeCountry(name)]
	return code, ok
}
