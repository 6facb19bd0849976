package sacs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regverify/internal/verification/models"
)

const basicTable = `<div id="tableUser"><table class="table"><tbody>
<tr><th>NOMBRE Y APELLIDO:</th><td><b> MARÍA PÉREZ </b></td></tr>
<tr><th>CÉDULA:</th><td><b>V-12345678</b></td></tr>
<tr><td colspan="2">&nbsp;</td></tr>
</tbody></table></div>`

const professionsTable = `<table id="profesional"><tbody>
<tr>
<td>MÉDICO(A) CIRUJANO(A)</td><td>MPPS-98765</td><td>15/03/2010</td><td>25</td><td>113</td>
<td><button class="btn btn-xs">Ver</button></td>
</tr>
<tr>
<td>LICENCIADO EN ENFERMERÍA</td><td>MPPS-11223</td><td>01/06/2015</td><td>8</td><td>44</td>
<td></td>
</tr>
<tr><td></td><td></td><td></td><td></td><td></td><td></td></tr>
</tbody></table>`

const postgraduatesTable = `<table id="grd_prof"><tbody>
<tr><td>CARDIOLOGÍA</td><td>20/01/2018</td><td>3</td><td>77</td></tr>
<tr><td>MEDICINA INTERNA</td><td>12/11/2014</td><td>2</td><td>31</td></tr>
</tbody></table>`

func TestParseBasicInfo(t *testing.T) {
	info := ParseBasicInfo(basicTable)

	assert.Equal(t, "MARÍA PÉREZ", info["NOMBRE Y APELLIDO"])
	assert.Equal(t, "V-12345678", info["CÉDULA"])
	assert.Len(t, info, 2)
}

func TestParseBasicInfoEmpty(t *testing.T) {
	assert.Empty(t, ParseBasicInfo(""))
	assert.Empty(t, ParseBasicInfo("<table><tbody><tr><td>loose</td></tr></tbody></table>"))
}

func TestParseProfessions(t *testing.T) {
	professions := ParseProfessions(professionsTable)
	require.Len(t, professions, 2)

	assert.Equal(t, models.Profession{
		Title:            "MÉDICO(A) CIRUJANO(A)",
		LicenseNumber:    "MPPS-98765",
		RegistrationDate: "15/03/2010",
		Volume:           "25",
		Folio:            "113",
		HasPostgraduates: true,
	}, professions[0])

	assert.Equal(t, "LICENCIADO EN ENFERMERÍA", professions[1].Title)
	assert.False(t, professions[1].HasPostgraduates)
}

func TestParseProfessionsSkipsShortRows(t *testing.T) {
	assert.Empty(t, ParseProfessions(`<table><tbody><tr><td>MÉDICO</td><td>123</td></tr></tbody></table>`))
}

func TestParsePostgraduates(t *testing.T) {
	postgraduates := ParsePostgraduates(postgraduatesTable)
	require.Len(t, postgraduates, 2)

	assert.Equal(t, models.Postgraduate{
		Title:            "CARDIOLOGÍA",
		RegistrationDate: "20/01/2018",
		Volume:           "3",
		Folio:            "77",
	}, postgraduates[0])
	assert.Equal(t, "MEDICINA INTERNA", postgraduates[1].Title)
}

func TestParsePostgraduatesEmpty(t *testing.T) {
	assert.Empty(t, ParsePostgraduates(""))
}
