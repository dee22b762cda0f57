package parcels

const (
	msgMenuMoved = "⚙️ A forma de acessar o módulo de encomendas mudou!\n\n" +
		"Agora, para abrir o menu, digite: *menu*\n\n" +
		"Exemplo:\n> menu"

	msgIntro = "🔐 Módulo de encomendas iniciado..."

	msgMenu = "Escolha uma opção:\n\n" +
		"1️⃣ Registrar Encomenda\n" +
		"2️⃣ Ver Todas as Encomendas\n" +
		"3️⃣ Confirmar Recebimento (via ID)\n" +
		"4️⃣ Ver Histórico de Encomendas"

	msgInvalidChoice = "⚠️ Opção inválida. Escolha entre 1, 2, 3 ou 4."

	msgAskName     = "👤 Qual o seu nome?"
	msgAskDate     = "📅 Qual a data estimada de entrega? (Ex: 25/10/2025)"
	msgAskLocation = "🏬 Onde a compra foi realizada? (Ex: Shopee, Mercado Livre)"
	msgAskID       = "📦 Informe o *ID da encomenda* que deseja confirmar:"
	msgAskReceiver = "✋ Quem está recebendo essa encomenda?"

	msgDateFormat  = "❌ Formato inválido. Use dia/mês/ano."
	msgDateInvalid = "❌ Data inválida. Tente novamente."

	msgNoParcels    = "📭 Nenhuma encomenda registrada ainda."
	msgHistoryEmpty = "📭 O histórico está vazio."
	msgInvalidID    = "❌ ID inválido ou encomenda já recebida.\nDigite *menu* e consulte pela opção 2."

	msgListHeader    = "📦 *Encomendas registradas:*\n\n"
	msgHistoryHeader = "📜 *Histórico de Encomendas:*\n\n"

	msgUnknownStep  = "⚠️ Algo deu errado. Digite *menu* para recomeçar."
	msgStoreFailure = "⚠️ Não foi possível acessar os registros de encomendas agora. Tente novamente em instantes."
)
