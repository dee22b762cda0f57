package laundry

import "github.com/zulandar/condobot/internal/bot"

const (
	msgMenu = "🧺 *MENU LAVANDERIA JK UNIVERSITÁRIO*\n\n" +
		"1️⃣ Dicas de uso 🧼\n" +
		"2️⃣ Info Lavadora ⚙️\n" +
		"3️⃣ Iniciar Lavagem 🚿\n" +
		"4️⃣ Finalizar Lavagem ✅\n" +
		"5️⃣ Entrar na Fila ⏳\n" +
		"6️⃣ Sair da Fila 🚶‍♂️\n" +
		"7️⃣ Sortear Roupas 🎲\n" +
		"8️⃣ Horário de Funcionamento ⏰\n" +
		"9️⃣ Previsão do Tempo 🌦️\n" +
		"🔟 Coleta de Lixo 🗑️\n\n" +
		"Digite o número da opção desejada ou use os comandos:\n" +
		"• *!ping* - Verificar status do bot\n" +
		"• *!ajuda* ou *menu* - Ver este menu"

	msgTips = "🧼 *DICAS DE USO DA LAVANDERIA*\n\n" +
		"1️⃣ Separe roupas por cor e tipo de tecido.\n" +
		"2️⃣ Não ultrapasse a capacidade máxima de 8,5kg.\n" +
		"3️⃣ Use a quantidade correta de sabão e amaciante.\n" +
		"4️⃣ Retire roupas imediatamente após o ciclo terminar.\n" +
		"5️⃣ Limpe o filtro da máquina regularmente.\n" +
		"6️⃣ Evite misturar roupas delicadas com pesadas."

	msgHours = "⏰ *HORÁRIO DE FUNCIONAMENTO*\n\n" +
		"🗓️ Todos os dias: 07:00 - 20:00\n\n" +
		"⚠️ *Aviso Importante:*\n" +
		"A *última lavagem deve começar até as 20h* para que seja *finalizada até as 22h*, " +
		"respeitando o horário de silêncio do condomínio. 🕊️\n\n" +
		"🔕 Evite usar as máquinas após as 22h, em qualquer dia."

	msgTrash = "🗑️ *COLETA DE LIXO*\n\n" +
		"📅 Hoje é *%s*\n\n" +
		"♻️ *Lixo Reciclável:* Terça, Quinta e Sábado\n" +
		"🗑️ *Lixo Orgânico e Comum:* Segunda, Quarta e Sexta\n\n" +
		"⏰ *Horário:* Deixar o lixo até às 19h na área designada.\n\n" +
		"🔹 *Orientações importantes:*\n" +
		"- Separe o lixo *reciclável* (papel, plástico, vidro, metal) do *orgânico* (restos de alimentos, cascas, etc.).\n" +
		"- Mantenha uma *sacola separada apenas para recicláveis*, facilitando o trabalho dos catadores.\n" +
		"- Sempre *amarre bem as sacolas* antes de colocar para fora.\n" +
		"- Use preferencialmente:\n" +
		"  🟦 *Sacos azuis* ou *sacolas brancas de supermercado* → para recicláveis\n" +
		"  ⬛ *Sacos pretos* → para lixo comum e orgânico\n\n" +
		"🚮 *Importante:*\n" +
		"Caso os sacos de lixo estejam na *calçada*, o descarte será feito junto com os demais moradores,\n" +
		"pois a coleta ocorre *a cada 2 dias*. Dessa forma, evitamos acúmulo e mantemos o local limpo e organizado.\n\n" +
		"💚 *Separar e descartar corretamente ajuda o meio ambiente e facilita o trabalho dos catadores!*"

	msgInUse         = "⚠️ A máquina já está em uso por @%s!\n\nDigite *5* para entrar na fila."
	msgStarted       = "%s, @%s! 🧺 Sua lavagem foi iniciada às %s.\n⏱️ Término previsto para %s."
	msgNoActive      = "ℹ️ Nenhuma lavagem está ativa no momento."
	msgOnlyHolder    = "⚠️ Apenas @%s pode finalizar esta lavagem."
	msgFinished      = "✅ *LAVAGEM FINALIZADA*\n\n@%s terminou de usar a lavadora!\n⏱️ Duração: %d minutos\n\n%s"
	msgNextInLine    = "Próximo da fila: @%s"
	msgAvailable     = "🟢 Máquina disponível!"
	msgWarning       = "🔔 @%s, sua lavagem vai finalizar em %d minutos."
	msgWashEnded     = "✅ @%s, sua lavagem terminou!\n🧺 A máquina agora está livre."
	msgYourTurn      = "🚨 @%s, chegou a sua vez de usar a máquina!"
	msgMachineFree   = "🟢 A máquina está disponível! Use a opção *3* para iniciar."
	msgAlreadyQueued = "ℹ️ Você já está na fila, @%s!"
	msgQueued        = "⏳ @%s entrou na fila!\n📊 Posição: %dº\n\n*Fila atual:*\n%s"
	msgNotQueued     = "ℹ️ Você não está na fila."
	msgLeftQueue     = "🚶‍♂️ @%s saiu da fila!"
	msgSampled       = "🧺 Lavagem sorteada (até %gkg):\n%s\n\nPeso total: %.2fkg"
	msgPong          = "🏓 Pong! Estou online.\n%s"
	msgPongBusy      = "🧺 Máquina em uso por @%s até %s."
	msgPongFree      = "🧺 Máquina livre."
	msgWelcome       = "👋 %s, @%s!\n\nSeja muito bem-vindo(a) ao grupo *%s* 🧺\n\n" +
		"Aqui você pode gerenciar o uso das máquinas de lavar e ver horários disponíveis.\n\n" +
		"Digite *menu* para ver todas as opções disponíveis."
	msgWelcomeShort = "👋 Bem-vindo(a) @%s!\n\n🧺 Digite *menu* para usar a lavanderia."
	msgFarewell     = "👋 @%s saiu do grupo.\nDesejamos boa sorte!"
	msgError        = "❌ Ocorreu um erro ao processar seu comando. Tente novamente."

	msgWeatherUnavailable = "⚠️ Não foi possível obter a previsão do tempo no momento. Tente novamente mais tarde."
)

// listMenu is the interactive menu; row ids are the numeric commands.
var listMenu = bot.OutboundMessage{
	Text:        "🧺 *Lavanderia – JK Universitário*\nSelecione uma opção:",
	Footer:      "Ou digite o número correspondente",
	ButtonLabel: "📋 Abrir Menu",
	Sections: []bot.Section{
		{
			Title: "🧺 Lavanderia",
			Rows: []bot.Row{
				{Title: "Dicas de uso 🧼", RowID: "1"},
				{Title: "Info Lavadora ⚙️", RowID: "2"},
				{Title: "Iniciar Lavagem 🚿", RowID: "3"},
				{Title: "Finalizar Lavagem ✅", RowID: "4"},
				{Title: "Entrar na Fila ⏳", RowID: "5"},
				{Title: "Sair da Fila 🚶‍♂️", RowID: "6"},
			},
		},
		{
			Title: "ℹ️ Utilidades",
			Rows: []bot.Row{
				{Title: "Sortear Roupas 🎲", RowID: "7"},
				{Title: "Horário de Funcionamento ⏰", RowID: "8"},
				{Title: "Previsão do Tempo 🌦️", RowID: "9"},
				{Title: "Coleta de Lixo 🗑️", RowID: "10"},
			},
		},
	},
}

// machineInfo is the washer's data sheet, one message per page.
var machineInfo = []string{
	"🧾 *Informações da Lavadora*\nElectrolux 8,5Kg LT09E\n\n*Especificações*\nCapacidade: 3-10 kg\nConsumo de energia: 0,26 KWh/ciclo\nSistema de lavagem: Agitação\nTipo de abertura: Superior\nPlugue: 10A\nQuantidade de níveis de roupa: 4",
	"*Este Produto inclui*\nÁgua quente: Não\nCesto: Polipropileno\nDispenser para alvejante: Sim\nDispenser para amaciante: Sim\nDispenser para sabão em pó: Sim\nFiltro elimina fiapos: Sim\nInterior de aço inox: Não\nPainel digital: Não\nPainel mecânico: Sim",
	"*Programas de lavagem*\n12 programas\nSistema de lavagem: Agitação\nVisualizador de etapas de lavagem: Sim\nDispenser para sabão líquido: Sim\nTipo de abertura: Superior\nMaterial do cesto: Polipropileno\nMotor direct drive: Não\nFunção lava tênis: Sim\nPrograma preferido: Não",
	"Sensor automático de carga de roupas: Não\nReaproveitamento de água: Sim\nEsterilização: Não\nFunção passa fácil: Não\nPré-lavagem: Não\nPés niveladores: Sim\nControle de temperatura: Não\nSilenciosa: Sim\nAlças laterais: Não",
	"*Funções*\nTurbo Agitação\nTurbo Secagem\nReutilização de Água\nAvança Etapas\nPerfect dilution\nCiclos rápidos: 19 min\nPainel: Mecânico\nProgramas: Pesado/jeans, Tira manchas, Limpeza de cesto, Rápido, Tênis, Edredom, Escuras, Coloridas, Brancas, Cama & banho, Delicado, Normal",
	"*Etapas de lavagem*\nMolho longo, Molho normal, Molho curto, Enxágue, Centrifugação\nProgramas disponíveis: Rápido, Tênis, Edredom, Brancas, Cama & banho, Normal, Super silencioso: Não, Pesado/intenso, Delicado/fitness: Não\nJatos poderosos: Não\nVapor: Não\nControle de molho: Sim",
	"Molho: Sim\nReutilizar água: Sim\nTurbo lavagem: Sim\nCiclo silencioso: Não\nWifi: Não\nIniciar/pausar: Não\nQuantidade de níveis de roupa: 4\nTamanho do edredom: Solteiro",
	"*Especificações técnicas*\nInstalação gratuita: Não\nConteúdo da embalagem: 1 máquina de lavar, 1 guia rápido, 1 curva da mangueira\nGarantia do produto: 1 ano\nEAN-13: 7896584070767 / 7896584070774\nTensão: 127 ou 220V\nCor: Branco",
	"Altura do produto embalado: 105,5 cm\nCapacidade de lavagem: 8,5 kg\nLargura do produto embalado: 57,4 cm\nProfundidade do produto embalado: 63 cm\nEcoPlus: Não\nPeso do produto embalado: 34,3 kg",
}

var weekdays = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}
