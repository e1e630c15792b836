package validation

const (
	MaxShortTextLength = 128
	MaxLongTextLength  = 5120

	// MaxRecordDepth bounds nesting inside an audit record.
	MaxRecordDepth = 16

	// Short text fields:
	SenderField    = "from"
	RecipientField = "to"
	TypeField      = "type"
	UsernameField  = "username"
	MetadataKey    = "metadata key"
	RecordKey      = "record key"

	// Long text fields:
	MetadataField = "metadata"
	RecordField   = "record"
)

var InjectionPatterns = []string{
	"${{", "{{", "}}", "${", "#{", "{%", "%}", "{{{", // templates/SSTI
	"%0a", "%0d", "%0a%0d", "%00", "%27", "%22", "%3c", "%3e", // encoded attacks (decode first)
	"${jndi:", "ldap://", "ldaps://", // JNDI/ldap
	"eval(", "exec(", "system(", "popen(", // dangerous funcs
}
