package screens

const startBody = "Я — AI-Майстер ✅\n\n" +
	"Я допомагаю з <b>діагностикою</b> та <b>ремонтом</b> ПК дистанційно.\n" +
	"Ти нічого «не вивчаєш» — я веду крок за кроком.\n\n" +
	"Обери дію нижче:"

const startText = "Привіт! " + startBody

const diagRequestText = "✅ Ок. Напиши ОДНИМ повідомленням:\n" +
	"1) Що саме гальмує (запуск/браузер/все)\n" +
	"2) Коли почалось (сьогодні/вчора/тиждень)\n" +
	"3) Windows 10/11\n" +
	"4) Чи були помилки/сині екрани\n\n" +
	"Приклад:\n" +
	"гальмує браузер, тиждень, Windows 11, помилок не було"

const diagResultTemplate = "✅ AI-діагностика завершена.\n\n" +
	"🔎 Попередній висновок:\n%s\n\n" +
	"Щоб перейти до ремонту — обери пакет нижче."

const consentTemplate = "📦 Обраний пакет: <b>%s</b>\n\n" +
	"🔐 Умови та конфіденційність (коротко)\n\n" +
	"• Я працюю тільки для ремонту/діагностики.\n" +
	"• Не збираю паролі/банківські дані, не читаю особисті чати.\n" +
	"• Можу бачити тільки те, що ти показуєш під час сесії.\n" +
	"• Логи/техдані потрібні лише для пошуку причини.\n" +
	"• Після завершення сесії доступ закривається.\n\n" +
	"Натисни «✅ Приймаю умови» щоб продовжити."

const accessRequestText = "✅ Добре.\n\n" +
	"Наступний крок — надати технічний доступ, щоб AI-Майстер міг виконати роботу.\n" +
	"🔸 Це один раз: ти підтверджуєш, і я роблю все сам.\n\n" +
	"Натисни кнопку нижче:"

const workingText = "🛠 AI-Майстер працює…\n\n" +
	"Статуси:\n" +
	"1) Підготовка (перевірка системи)\n" +
	"2) Усунення причин лагів\n" +
	"3) Контрольний тест\n" +
	"4) Фінальний звіт ✅\n\n" +
	"Ти можеш просто чекати. Я напишу результат."

const paymentText = "💳 Оплата послуги\n\n" +
	"Ви отримали результат роботи AI-Майстра.\n" +
	"Для завершення сесії та гарантії підтримки — потрібно підтвердити оплату.\n\n" +
	"📌 Без оплати — сесія завершується, доступ закривається автоматично."

const paidText = "✅ Дякую! Сесію завершено, доступ закрито.\n\n" +
	"Напиши /start, якщо знадобиться ще допомога."

const reminderText = "⏰ Нагадування\n\n" +
	"Роботу по твоєму ПК завершено, залишилось підтвердити оплату пакета."

const howItWorksText = "🧭 <b>Як проходить діагностика</b>\n\n" +
	"1) Ти описуєш проблему одним повідомленням\n" +
	"2) AI робить попередній висновок\n" +
	"3) Ти обираєш пакет\n" +
	"4) Погоджуєш умови\n" +
	"5) Надаєш техдоступ\n" +
	"6) AI-Майстер працює та дає результат ✅"

const helpText = "🆘 <b>Допомога</b>\n\n" +
	"• Напиши /start щоб відкрити меню\n" +
	"• Якщо кнопки не натискаються — онови чат або повтори /start"

const referralTemplate = "👥 <b>Запроси друга</b>\n\n" +
	"Твоє персональне посилання:\n%s\n\n" +
	"Запрошено друзів: <b>%d</b>"

const shareText = "Спробуй AI-Майстра: діагностика та ремонт ПК дистанційно 👇"

const fallbackText = "Щось пішло не так. Напиши /start щоб відкрити меню."
