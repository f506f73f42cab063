package identity

import "strings"

// eveAPIResponse общая обертка ответов EVE XML API: eveapi > result
type eveAPIResponse struct {
	Result []eveResult `xml:"result"`
	Error  *eveError   `xml:"error"`
}

type eveError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// eveResult объединяет поля обоих используемых вызовов
type eveResult struct {
	Rowsets       []eveRowset `xml:"rowset"`
	CharacterName []string    `xml:"characterName"`
	Race          []string    `xml:"race"`
	Bloodline     []string    `xml:"bloodline"`
}

type eveRowset struct {
	Name string   `xml:"name,attr"`
	Rows []eveRow `xml:"row"`
}

type eveRow struct {
	Name        string `xml:"name,attr"`
	CharacterID string `xml:"characterID,attr"`
}

// firstCharacterID возвращает eveapi/result/rowset/row@characterID первой строки
func (r *eveAPIResponse) firstCharacterID() (string, bool) {
	if len(r.Result) == 0 || len(r.Result[0].Rowsets) == 0 || len(r.Result[0].Rowsets[0].Rows) == 0 {
		return "", false
	}
	id := strings.TrimSpace(r.Result[0].Rowsets[0].Rows[0].CharacterID)
	// EVE отвечает characterID="0" на неизвестное имя
	if id == "" || id == "0" {
		return "", false
	}
	return id, true
}

func (r *eveAPIResponse) profile() (Profile, bool) {
	if len(r.Result) == 0 {
		return Profile{}, false
	}
	res := r.Result[0]
	if len(res.CharacterName) == 0 || len(res.Race) == 0 || len(res.Bloodline) == 0 {
		return Profile{}, false
	}
	p := Profile{
		Name:      strings.TrimSpace(res.CharacterName[0]),
		Race:      strings.TrimSpace(res.Race[0]),
		Bloodline: strings.TrimSpace(res.Bloodline[0]),
	}
	if p.Name == "" || p.Race == "" || p.Bloodline == "" {
		return Profile{}, false
	}
	return p, true
}
