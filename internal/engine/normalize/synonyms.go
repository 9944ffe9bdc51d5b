package normalize

// Logical identifying fields recognized at the RawRecord boundary.
const (
	FieldDocument  = "document"
	FieldName      = "name"
	FieldPhone     = "phone"
	FieldEmail     = "email"
	FieldAddress   = "address"
	FieldBirthDate = "birth_date"
)

// KnownHeader reports whether a raw column name matches any recognized
// synonym for an identifying field. Ingestion uses it for header row
// discovery in unlabeled exports.
func KnownHeader(h string) bool {
	key := normalizeHeader(h)
	if key == "" {
		return false
	}
	for _, syns := range fieldSynonyms {
		for _, s := range syns {
			if s == key {
				return true
			}
		}
	}
	return false
}

// fieldSynonyms maps each logical field to the source column names that carry
// it, in priority order. The per-store exports never agreed on column naming,
// so the list is tried first-match-wins against accent-stripped, lower-cased
// headers. Keeping the table here confines messy input shape handling to this
// package.
var fieldSynonyms = map[string][]string{
	FieldDocument: {
		"cpf", "cpf cnpj", "documento", "doc", "num documento", "document",
	},
	FieldName: {
		"nome completo", "nome cliente", "nome", "cliente", "full name", "name",
	},
	FieldPhone: {
		"celular", "telefone celular", "telefone", "fone", "whatsapp", "tel", "phone",
	},
	FieldEmail: {
		"email", "e mail", "mail",
	},
	FieldAddress: {
		"endereco", "endereco completo", "logradouro", "address",
	},
	FieldBirthDate: {
		"data nascimento", "data de nascimento", "nascimento", "dt nasc", "data nasc",
		"aniversario", "birth date",
	},
}
