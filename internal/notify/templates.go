package notify

import (
	"bytes"
	"html/template"
)

const layoutOpen = `<div style="font-family: Arial, sans-serif; color: #333;">`
const layoutClose = `<br><p>Atentamente,</p><p>El equipo de New Horizons</p></div>`

var (
	welcomeTmpl = template.Must(template.New("welcome").Parse(layoutOpen + `
<h1>¡Bienvenido, {{.Name}}!</h1>
<p>Gracias por registrarte en el Portal de New Horizons.</p>
<p>Estamos aquí para acompañarte en tu proceso migratorio.</p>
<p>Puedes iniciar sesión para ver el estado de tus trámites en cualquier momento.</p>
` + layoutClose))

	statusTmpl = template.Must(template.New("status").Parse(layoutOpen + `
<h2>Hola {{.Name}},</h2>
<p>El estado de tu ticket <strong>"{{.Title}}"</strong> ha cambiado.</p>
<p><strong>Nuevo Estado:</strong> {{.Status}}</p>
<p>Por favor ingresa a la plataforma para ver más detalles.</p>
<br>
<a href="{{.Link}}" style="background-color: #10b981; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Ver Ticket</a>
` + layoutClose))

	appointmentTmpl = template.Must(template.New("appointment").Parse(layoutOpen + `
<h2>Cita Confirmada</h2>
<p>Hola {{.Name}}, tu cita ha sido agendada exitosamente.</p>
<ul>
  <li><strong>Tipo:</strong> {{.Type}}</li>
  <li><strong>Fecha y Hora:</strong> {{.Date}}</li>
  {{if .Link}}<li><strong>Enlace:</strong> <a href="{{.Link}}">{{.Link}}</a></li>{{end}}
</ul>
<p>Por favor asegúrate de estar puntual.</p>
` + layoutClose))

	credentialsTmpl = template.Must(template.New("credentials").Parse(layoutOpen + `
<h1>¡Pago recibido, {{.Name}}!</h1>
<p>Hemos creado tu cuenta en el Portal de New Horizons para el programa <strong>{{.Program}}</strong>.</p>
<ul>
  <li><strong>Usuario:</strong> {{.Email}}</li>
  <li><strong>Contraseña temporal:</strong> {{.Password}}</li>
</ul>
<p>Te recomendamos cambiarla después de tu primer ingreso.</p>
<br>
<a href="{{.Link}}" style="background-color: #10b981; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Ir al Portal</a>
` + layoutClose))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
