package chat

import "github.com/talkroom/chat-service/internal/domain"

// Page возвращает страницу истории, отсчитываемую от хвоста лога:
// page 0 — последние size сообщений (во внутреннем порядке лога,
// старые раньше), рост page уходит вглубь истории. Границы кламплются:
// страницы глубже начала истории упираются в её голову, некорректные
// page/size нормализуются — ошибок пагинация не возвращает.
func Page(messages []domain.Message, page, size int) []domain.Message {
	if size < 1 {
		size = 1
	}

	start := len(messages) - (page+1)*size
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(messages) {
		end = len(messages)
	}
	if start > end {
		return nil
	}

	return messages[start:end]
}
